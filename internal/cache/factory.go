package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// NewCache creates the configured cache backend. An unreachable Redis
// degrades to the no-op cache with a warning instead of failing startup,
// since answering works without a cache.
func NewCache(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "memory", "":
		return NewMemoryCache(cfg.Memory.MaxEntries), nil
	case "redis":
		c, err := NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, answer caching disabled",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err))
			return NewNoopCache(), nil
		}
		return c, nil
	case "none":
		return NewNoopCache(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported cache provider: %s (supported: memory, redis, none)", ErrInvalidConfig, cfg.Provider)
	}
}
