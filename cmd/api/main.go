package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"hireflow/internal/app"
	"hireflow/internal/config"
	"hireflow/internal/database"
	"hireflow/internal/domain/account"
	"hireflow/internal/domain/application"
	apphttp "hireflow/internal/http"
	"hireflow/internal/http/handlers"
	"hireflow/internal/http/metrics"
	httpmw "hireflow/internal/http/middleware"
	"hireflow/internal/mail"
	"hireflow/internal/observability"
	"hireflow/internal/offerletter"
	"hireflow/internal/repository/memory"
	"hireflow/internal/repository/postgres"
	"hireflow/internal/security"
	"hireflow/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	var (
		applicationRepo application.Repository
		accountRepo     account.Repository
	)
	if cfg.PostgresDSN == "" {
		logger.Warn("database url missing, using in-memory stores")
		applicationRepo = memory.NewApplicationRepository()
		accountRepo = memory.NewAccountRepository("Candidate", "Viewer")
	} else {
		db, err := database.NewPostgres(context.Background(), database.PostgresConfig{
			DSN:             cfg.PostgresDSN,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxIdle:     cfg.DBConnMaxIdle,
			ConnMaxLifetime: cfg.DBConnMaxLife,
		}, logger)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		migrate(db, logger)
		applicationRepo = postgres.NewApplicationRepository(db)
		accountRepo = postgres.NewAccountRepository(db)
	}

	var limiter httpmw.Limiter = httpmw.NewRateLimiter()
	if client := connectRedis(cfg.RedisURL, logger); client != nil {
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error("redis close failed", slog.String("error", err.Error()))
			}
		}()
		limiter = httpmw.NewRedisLimiter(client, "hireflow", logger)
	}

	files, err := storage.NewManager(cfg.UploadRoot)
	if err != nil {
		log.Fatal(err)
	}
	mailer := mail.NewMailer(cfg.SMTP, logger)
	letters := app.NewOfferLetters(offerletter.NewGenerator(cfg.CompanyName), files, logger)
	provisioner := app.NewProvisioner(accountRepo, cfg.PasswordSuffix)

	workflowService := app.NewWorkflowService(applicationRepo, mailer, letters, provisioner, cfg.PublicBaseURL, cfg.CompanyName, logger)
	responseService := app.NewResponseService(applicationRepo, files, provisioner, mailer, cfg.CompanyName, logger)
	applicationService := app.NewApplicationService(applicationRepo, files, letters, logger)

	collector := metrics.NewCollector()
	router := apphttp.NewRouter(apphttp.RouterDependencies{
		ApplicationHandler: handlers.NewApplicationHandler(applicationService),
		WorkflowHandler:    handlers.NewWorkflowHandler(workflowService, collector),
		PublicHandler:      handlers.NewPublicHandler(responseService, cfg.CompanyName, collector, logger),
		AuthMiddleware:     httpmw.NewAuthMiddleware(security.NewJWTProvider(cfg.JWTSecret)),
		Limiter:            limiter,
		PublicRateLimit:    cfg.PublicRateLimit,
		Metrics:            collector,
		Logger:             logger,
		RequestTimeout:     cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("API started", slog.String("port", cfg.HTTPPort), slog.Bool("smtp", mailer.Enabled()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
}

func migrate(db *sql.DB, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}
	logger.Info("database schema applied")
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// in-process limiter is used instead.
func connectRedis(url string, logger *slog.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Error("redis url parse failed", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	return client
}
