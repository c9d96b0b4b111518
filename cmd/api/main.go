package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dafibh/fortuna/tokenledger/internal/clock"
	"github.com/dafibh/fortuna/tokenledger/internal/config"
	"github.com/dafibh/fortuna/tokenledger/internal/handler"
	"github.com/dafibh/fortuna/tokenledger/internal/idgen"
	"github.com/dafibh/fortuna/tokenledger/internal/ledger"
	"github.com/dafibh/fortuna/tokenledger/internal/middleware"
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

	ctx := context.Background()

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
	errorSink := observability.NewLoggingErrorSink(logger.With("ledger"))

	deps := ledger.Deps{
		Store:     ddb,
		Clock:     clock.RealClock{},
		IDGen:     idgen.UUIDGenerator{},
		Archiver:  archiver,
		Logger:    logger.With("ledger"),
		ErrorSink: errorSink,
	}

	hub := websocket.NewHub()
	engine := ledger.NewEngine(deps, hub)

	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}

	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create websocket JWT validator")
	}

	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	ledgerHandler := handler.NewLedgerHandler(engine)
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.RegisterRoutes(e, authMiddleware, middleware.RateLimitMiddleware(rateLimiter), ledgerHandler, wsHandler)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
