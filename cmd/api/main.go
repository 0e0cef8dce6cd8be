package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/vatavaran/vatavaran-backend/api/controllers"
	"github.com/vatavaran/vatavaran-backend/api/routes"
	"github.com/vatavaran/vatavaran-backend/internal/auth"
	"github.com/vatavaran/vatavaran-backend/internal/classification"
	"github.com/vatavaran/vatavaran-backend/internal/feedback"
	"github.com/vatavaran/vatavaran-backend/internal/ledger"
	"github.com/vatavaran/vatavaran-backend/internal/pickups"
	"github.com/vatavaran/vatavaran-backend/internal/staff"
	"github.com/vatavaran/vatavaran-backend/internal/uploads"
	"github.com/vatavaran/vatavaran-backend/pkg/auth/session"
	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/db"
	"github.com/vatavaran/vatavaran-backend/pkg/gemini"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/metrics"
	"github.com/vatavaran/vatavaran-backend/pkg/migrate"
	"github.com/vatavaran/vatavaran-backend/pkg/outbox"
	"github.com/vatavaran/vatavaran-backend/pkg/redis"
	"github.com/vatavaran/vatavaran-backend/pkg/storage/s3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)
	pickupMetrics := metrics.NewPickupMetrics(promRegistry)
	classifierMetrics := metrics.NewClassifierMetrics(promRegistry)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return err
	}

	staffService, err := staff.NewService(staff.NewRepository(dbClient.DB()), dbClient, ledgerService, cfg.Password)
	if err != nil {
		return err
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	pickupService, err := pickups.NewService(
		pickups.NewRepository(dbClient.DB()),
		dbClient,
		ledgerService,
		outboxService,
		pickupMetrics,
		logg,
	)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Staff:          staffService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return err
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	var uploadService uploads.Service
	if cfg.Storage.Enabled() {
		s3Client, err := s3.NewClient(bootCtx, cfg.Storage, logg)
		if err != nil {
			return err
		}
		readiness["storage"] = s3Client
		uploadService = uploads.NewService(s3Client, cfg.Storage, logg)
	} else {
		logg.Warn(bootCtx, "upload bucket not configured, image uploads disabled")
		uploadService = uploads.NewService(nil, cfg.Storage, logg)
	}

	var classifier classification.Service
	if cfg.Classifier.APIKey != "" {
		geminiClient, err := gemini.NewClient(cfg.Classifier.APIKey,
			gemini.WithBaseURL(cfg.Classifier.BaseURL),
			gemini.WithModel(cfg.Classifier.Model),
			gemini.WithTimeout(cfg.Classifier.Timeout),
		)
		if err != nil {
			return err
		}
		classifier, err = classification.NewService(geminiClient, redisClient, cfg.Classifier, classifierMetrics, logg)
		if err != nil {
			return err
		}
	} else {
		logg.Warn(bootCtx, "gemini api key not configured, classifier returns fallback suggestions")
		classifier, err = classification.NewService(nil, redisClient, cfg.Classifier, classifierMetrics, logg)
		if err != nil {
			return err
		}
	}

	feedbackService, err := feedback.NewService(feedback.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		Sessions:       sessionManager,
		Redis:          redisClient,
		Readiness:      readiness,
		Registry:       promRegistry,
		HTTPMetrics:    httpMetrics,
		Auth:           authService,
		Staff:          staffService,
		Pickups:        pickupService,
		Uploads:        uploadService,
		Classification: classifier,
		Feedback:       feedbackService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
