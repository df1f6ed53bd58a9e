package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-api/auth"
	cachepackage "blog-api/cache"
	"blog-api/config"
	"blog-api/database"
	"blog-api/uploads"

	"github.com/umakantv/go-utils/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func StartServer(cfg *config.Config) {
	// Initialize logger
	logger.Init(logger.LoggerConfig{
		CallerKey:  "file",
		TimeKey:    "timestamp",
		CallerSkip: 1,
	})

	logger.Info("Starting Blog API...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := InitTracing(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize tracing", zap.Error(err))
		os.Exit(1)
	}

	// Initialize database
	store := database.InitializeDatabase(cfg)

	// Initialize cache
	cache := cachepackage.InitializeCache(cfg)

	storage, uploadDir := initializeUploads(ctx, cfg)

	router := NewRouter(Dependencies{
		Store:      store,
		Tokens:     auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		Cache:      cache,
		Uploads:    storage,
		UploadDir:  uploadDir,
		CORSOrigin: cfg.CORSOrigin,
		Metrics:    NewMetrics(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Blog API started", zap.String("addr", srv.Addr))
		logger.Info("Health check: GET /health")
		logger.Info("API endpoints: /auth, /posts, /tags, /upload")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", zap.Error(err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down Blog API...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("Error closing database", zap.Error(err))
	}
	if cache != nil {
		cache.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Blog API stopped")
}

// initializeUploads picks object storage when S3 is configured, otherwise the
// local upload directory which is then also served under /upload/.
func initializeUploads(ctx context.Context, cfg *config.Config) (uploads.Storage, string) {
	if cfg.S3.Enabled() {
		s3, err := uploads.NewS3Storage(cfg.S3)
		if err != nil {
			logger.Error("Failed to initialize object storage", zap.Error(err))
			os.Exit(1)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			logger.Error("Failed to prepare upload bucket", zap.String("bucket", cfg.S3.Bucket), zap.Error(err))
			os.Exit(1)
		}
		logger.Info("Uploads stored in object storage", zap.String("bucket", cfg.S3.Bucket))
		return s3, ""
	}

	disk := uploads.NewDiskStorage(cfg.UploadDir)
	if err := os.MkdirAll(disk.Dir(), 0o755); err != nil {
		logger.Error("Failed to prepare upload directory", zap.String("dir", disk.Dir()), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Uploads stored on disk", zap.String("dir", disk.Dir()))
	return disk, disk.Dir()
}
