package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aigyoo-backend/internal/app"
	"aigyoo-backend/internal/cache"
	"aigyoo-backend/internal/config"
	"aigyoo-backend/internal/jobs"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/queue"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/routes"
	"aigyoo-backend/internal/services/assistant"
	"aigyoo-backend/internal/services/verification"
	"aigyoo-backend/internal/storage"
	"aigyoo-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load env
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Configure(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect DB
	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if err := config.Migrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	if n, err := verification.MigrateLegacyStatuses(ctx, db); err != nil {
		logger.Error("failed to migrate verification statuses", "error", err)
		os.Exit(1)
	} else if n > 0 {
		logger.Info("legacy verification statuses rewritten", "rows", n)
	}

	// 3. Redis: token deny-list and realtime fan-out
	rc := cache.NewRedisCache(cfg)
	if err := rc.Ping(ctx); err != nil {
		logger.Error("failed to connect redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer rc.Close()

	infra := app.Infra{
		Config:   cfg,
		DB:       db,
		Realtime: realtime.NewRedis(rc.Client),
		Revoker:  rc,
		Assistant: assistant.NewClient(assistant.Options{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Models:      cfg.AI.Models,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			SiteURL:     cfg.EmailRedirectURL,
		}),
	}

	// 4. Blob store and review queue, optional outside production
	if cfg.S3.Bucket != "" {
		s3Client, sqsClient, err := storage.NewAWSClients(ctx, cfg.S3.Endpoint)
		if err != nil {
			logger.Error("failed to init aws clients", "error", err)
			os.Exit(1)
		}
		infra.Blobs = storage.NewS3Store(s3Client, cfg.S3.Bucket, cfg.S3.PublicBaseURL)
		if cfg.SQS.ReviewQueue != "" {
			infra.Reviews = queue.NewSQSQueue(sqsClient, cfg.SQS.ReviewQueue)
		}
	} else {
		logger.Warn("S3_BUCKET not set, verification uploads are disabled")
	}

	// 5. Push notifications
	if cfg.FCM.CredentialsFile != "" {
		fcm, err := utils.NewFCMNotifier(ctx, cfg.FCM.CredentialsFile)
		if err != nil {
			logger.Warn("push notifications disabled", "error", err)
		} else {
			infra.Notifier = fcm
		}
	}

	a := app.New(infra)

	// 6. Scheduled jobs
	scheduler, err := jobs.NewScheduler()
	if err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	if err := jobs.ScheduleReconcile(scheduler, cfg.ReconcileCron, a.Verification); err != nil {
		logger.Error("failed to schedule reconcile job", "error", err)
		os.Exit(1)
	}

	// 7. Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	streams, endStreams := context.WithCancel(context.Background())
	defer endStreams()

	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, a, streams)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open SSE streams would otherwise hold Shutdown until the timeout
	srv.RegisterOnShutdown(endStreams)

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := scheduler.Stop(); err != nil {
		logger.Error("scheduler shutdown failed", "error", err)
	}
}
