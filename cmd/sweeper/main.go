package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dafibh/fortuna/tokenledger/internal/clock"
	"github.com/dafibh/fortuna/tokenledger/internal/config"
	"github.com/dafibh/fortuna/tokenledger/internal/idgen"
	"github.com/dafibh/fortuna/tokenledger/internal/ledger"
	"github.com/dafibh/fortuna/tokenledger/internal/observability"
	"github.com/dafibh/fortuna/tokenledger/internal/store/archive"
	"github.com/dafibh/fortuna/tokenledger/internal/store/dynamodb"
	"github.com/dafibh/fortuna/tokenledger/internal/websocket"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ddb, err := dynamodb.New(ctx, dynamodb.Config{
		Region:          cfg.DynamoDB.Region,
		Endpoint:        cfg.DynamoDB.Endpoint,
		AccessKeyID:     cfg.DynamoDB.AccessKeyID,
		SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DynamoDB")
	}

	var archiver archive.Archiver = archive.NoOpArchiver{}
	if cfg.ArchiveDatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.ArchiveDatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to archive database")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping archive database")
		}
		pgArchiver := archive.NewPostgresArchiver(pool)
		if err := pgArchiver.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure archive schema")
		}
		archiver = pgArchiver
		log.Info().Msg("Connected to archive database")
	}

	logger := observability.NewLogger(cfg.Env)
	errorSink := observability.NewLoggingErrorSink(logger.With("sweeper"))

	deps := ledger.Deps{
		Store:     ddb,
		Clock:     clock.RealClock{},
		IDGen:     idgen.UUIDGenerator{},
		Archiver:  archiver,
		Logger:    logger.With("sweeper"),
		ErrorSink: errorSink,
	}

	engine := ledger.NewEngine(deps, &websocket.NoOpPublisher{})

	sweeper := ledger.NewSweeper(engine, ledger.SweeperConfig{
		ExpiryInterval:          time.Duration(cfg.Sweeper.ExpiryIntervalSeconds) * time.Second,
		ExpiryExpiredForSeconds: cfg.Sweeper.ExpiryExpiredForSeconds,
		ExpiryBatchSize:         cfg.Sweeper.ExpiryBatchSize,
		RetentionInterval:       time.Duration(cfg.Sweeper.RetentionIntervalSeconds) * time.Second,
		RetentionOlderThanDays:  cfg.Sweeper.RetentionOlderThanDays,
		RetentionLimit:          cfg.Sweeper.RetentionLimit,
		RetentionDryRun:           cfg.Sweeper.RetentionDryRun,
		RetentionArchive:          cfg.Sweeper.RetentionArchive,
		RetentionMaxSeconds:       cfg.Sweeper.RetentionMaxSeconds,
		RetentionRecordsPerSecond: cfg.Sweeper.RetentionRecordsPerSecond,
	})

	sweeper.Start(ctx)
	log.Info().Msg("Sweeper started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down sweeper...")
	cancel()
	sweeper.Stop()
	log.Info().Msg("Sweeper exited")
}
