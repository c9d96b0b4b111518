package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the token ledger service.
type Config struct {
	// Archive (cold storage for purged registry rows)
	ArchiveDatabaseURL string

	// Auth0
	Auth0Domain   string
	Auth0Audience string
	Auth0ClientID string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	DynamoDB DynamoDBConfig
	Sweeper  SweeperConfig
}

// DynamoDBConfig carries the environment-tunable pieces of connecting to the
// live TOKEN_REGISTRY table. Endpoint is set for local development against
// DynamoDB Local; it is left empty in production so the SDK resolves the
// real regional endpoint.
type DynamoDBConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	TablePrefix     string
}

// SweeperConfig tunes the background expiry and retention sweepers run by
// cmd/sweeper.
type SweeperConfig struct {
	ExpiryIntervalSeconds    int
	ExpiryExpiredForSeconds  int64
	ExpiryBatchSize          int
	RetentionIntervalSeconds int
	RetentionOlderThanDays   int
	RetentionLimit           int
	RetentionDryRun          bool
	RetentionArchive         bool
	RetentionMaxSeconds      int64
	RetentionRecordsPerSecond float64
}

// Load reads configuration from environment variables, falling back to a
// .env file in the working directory when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ArchiveDatabaseURL: getEnv("ARCHIVE_DATABASE_URL", ""),
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		Auth0ClientID:      getEnv("AUTH0_CLIENT_ID", ""),
		Port:               getEnv("PORT", "8080"),
		CORSOrigins:        strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:                getEnv("ENV", "development"),
		DynamoDB: DynamoDBConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("DYNAMODB_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			TablePrefix:     getEnv("DYNAMODB_TABLE_PREFIX", ""),
		},
		Sweeper: SweeperConfig{
			ExpiryIntervalSeconds:    getEnvInt("SWEEPER_EXPIRY_INTERVAL_SECONDS", 60),
			ExpiryExpiredForSeconds:  getEnvInt64("SWEEPER_EXPIRY_EXPIRED_FOR_SECONDS", 0),
			ExpiryBatchSize:          getEnvInt("SWEEPER_EXPIRY_BATCH_SIZE", 100),
			RetentionIntervalSeconds: getEnvInt("SWEEPER_RETENTION_INTERVAL_SECONDS", 86400),
			RetentionOlderThanDays:   getEnvInt("SWEEPER_RETENTION_OLDER_THAN_DAYS", 365),
			RetentionLimit:           getEnvInt("SWEEPER_RETENTION_LIMIT", 1000),
			RetentionDryRun:           getEnvBool("SWEEPER_RETENTION_DRY_RUN", true),
			RetentionArchive:          getEnvBool("SWEEPER_RETENTION_ARCHIVE", true),
			RetentionMaxSeconds:       getEnvInt64("SWEEPER_RETENTION_MAX_SECONDS", 0),
			RetentionRecordsPerSecond: getEnvFloat("SWEEPER_RETENTION_RECORDS_PER_SECOND", 0),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if c.DynamoDB.Region == "" {
		return fmt.Errorf("AWS_REGION is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}
