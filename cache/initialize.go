package cache

import (
	"os"

	"blog-api/config"

	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// InitializeCache connects to Redis when REDIS_ADDR is configured and falls
// back to the in-process memory cache otherwise.
func InitializeCache(cfg *config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		c, err := cache.New(cache.Config{Type: "memory"})
		if err != nil {
			logger.Error("Failed to initialize cache:", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("Cache initialized", zap.String("type", "memory"))
		return c
	}

	c, err := cache.New(cache.Config{
		Type:          "redis",
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       0,
	})
	if err != nil {
		logger.Error("Failed to initialize cache:", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Cache initialized", zap.String("type", "redis"), zap.String("addr", cfg.RedisAddr))
	return c
}
