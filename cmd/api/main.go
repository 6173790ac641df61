package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/desk-relay/internal/api/http"
	"github.com/spec-kit/desk-relay/internal/api/http/handlers"
	"github.com/spec-kit/desk-relay/internal/auth"
	"github.com/spec-kit/desk-relay/internal/config"
	"github.com/spec-kit/desk-relay/internal/desk"
	"github.com/spec-kit/desk-relay/internal/events"
	"github.com/spec-kit/desk-relay/internal/llm"
	"github.com/spec-kit/desk-relay/internal/observability"
	"github.com/spec-kit/desk-relay/internal/service"
	"github.com/spec-kit/desk-relay/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logRequiredSettings(logger, cfg)

	profile, err := cfg.ExtractionProfile()
	if err != nil {
		logger.Fatal("failed to resolve extraction profile", zap.Error(err))
	}
	logger.Info("extraction profile", zap.String("profile", profile.Name), zap.String("model", profile.Model))

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	drainNotifications := worker.StartNotificationWorker(notifications, logger, shutdownTimeout)

	deskHTTP := &http.Client{Timeout: cfg.Desk.Timeout()}
	extractionService := service.NewExtractionService(service.ExtractionDependencies{
		LLM:        llm.NewClient(cfg.LLM, logger),
		Profile:    profile,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Tokens:     desk.NewTokenProvider(cfg.Desk, deskHTTP, logger),
		Desk:       desk.NewClient(cfg.Desk, deskHTTP, logger),
		Profile:    profile,
		DeskConfig: cfg.Desk,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	if tokens.Enabled() {
		logger.Info("bearer authentication enabled")
	}

	metrics := observability.NewMetrics()
	app := httptransport.NewServer(httptransport.ServerConfig{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimit(),
		Middleware: httptransport.MiddlewareConfig{
			Timeout:     cfg.App.RequestTimeout(),
			CORSOrigins: cfg.App.CORSAllowedOrigins,
		},
	}, logger, metrics, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Missing, metrics),
		Extraction:     handlers.NewExtractionHandler(extractionService, validator.New()),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	drainNotifications()
}

// logRequiredSettings reports which required settings are present without
// printing secret values.
func logRequiredSettings(logger *zap.Logger, cfg *config.Config) {
	for _, s := range cfg.Required() {
		switch {
		case s.Value == "":
			logger.Warn("required setting NOT LOADED", zap.String("key", s.Key))
		case s.Secret:
			logger.Info("required setting loaded", zap.String("key", s.Key))
		default:
			logger.Info("required setting loaded", zap.String("key", s.Key), zap.String("value", s.Value))
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
