package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/bank-assistant/internal/auth"
	"github.com/iliyamo/bank-assistant/internal/chat"
	"github.com/iliyamo/bank-assistant/internal/config"
	"github.com/iliyamo/bank-assistant/internal/database"
	"github.com/iliyamo/bank-assistant/internal/handler"
	"github.com/iliyamo/bank-assistant/internal/middleware"
	"github.com/iliyamo/bank-assistant/internal/query"
	"github.com/iliyamo/bank-assistant/internal/queue"
	"github.com/iliyamo/bank-assistant/internal/repository"
	"github.com/iliyamo/bank-assistant/internal/router"
	queue_publisher "github.com/iliyamo/bank-assistant/internal/service"
	"github.com/iliyamo/bank-assistant/internal/session"
	"github.com/iliyamo/bank-assistant/internal/telemetry"
)

const serviceName = "bank-assistant"

func main() {
	cfg := config.Load()
	config.ConfigureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := telemetry.Setup(serviceName)

	store := openStore(ctx, cfg)

	rdb := config.NewRedisClient()
	var sessStore session.Store = session.NewMemoryStore()
	if rdb != nil {
		sessStore = session.NewRedisStore(rdb, cfg.SessionTTL)
		defer rdb.Close()
	}
	sessions := session.NewManager(sessStore, session.Options{
		Secret: cfg.SessionSecret,
		TTL:    cfg.SessionTTL,
		Secure: cfg.CookieSecure,
	})

	var audit queue.Recorder = queue.Discard{}
	var publisher *queue_publisher.Publisher
	if cfg.AuditEnabled {
		publisher = queue_publisher.NewPublisher(cfg.RabbitURL)
		audit = publisher
		log.Info().Str("queue", queue.AuditQueueName).Msg("audit events enabled")
	}
	if cfg.AuditConsumer {
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, cfg.AuditLogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("audit consumer stopped")
			}
		}()
	}

	authSvc := auth.NewService(store, auth.Options{
		PasswordScheme: cfg.PasswordScheme,
		BcryptCost:     cfg.BcryptCost,
		ResetTokenTTL:  cfg.ResetTokenTTL,
		Audit:          audit,
	})
	q := query.NewService(store)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, session.RoleHeader},
	}))
	e.Use(echomw.Recover())

	routes, err := router.Setup(e, router.Deps{
		Store:     store,
		Sessions:  sessions,
		Auth:      handler.NewAuthHandler(authSvc, sessions, audit, cfg.ExposeResetTok),
		Chat:      handler.NewChatHandler(chat.NewClient(cfg.OllamaEndpoint, cfg.OllamaModel, cfg.ChatTimeout)),
		Customer:  handler.NewCustomerHandler(q),
		Admin:     handler.NewAdminHandler(store, q),
		Pages:     handler.NewPageHandler(cfg.FrontendDir, sessions),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("route table")
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: otelhttp.NewHandler(e, serviceName),
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Int("routes", len(routes)).
			Str("store", cfg.RecordStore).Str("model", cfg.OllamaModel).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	if publisher != nil {
		if err := publisher.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("audit publisher shutdown")
		}
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown")
	}
}

// openStore returns the record store selected by RECORD_STORE.
func openStore(ctx context.Context, cfg config.Config) repository.CustomerStore {
	if cfg.RecordStore != "mysql" {
		return repository.NewCSVStore(cfg.DataFile)
	}
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql")
	}
	if err := database.CreateCustomersTable(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("create customers table")
	}
	return repository.NewMySQLStore(db)
}
