package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "deliveries:ratelimit"

// RateLimitConfig limits requests per client IP
type RateLimitConfig struct {
	PerMinute int
	// Redis shares counters across instances; nil keeps them in memory
	Redis *redis.Client
}

// RateLimit returns a per-IP limiter. A non-positive rate disables it.
func RateLimit(cfg RateLimitConfig, log *logger.Logger) (gin.HandlerFunc, error) {
	if cfg.PerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }, nil
	}

	store, err := newStore(cfg.Redis)
	if err != nil {
		return nil, err
	}
	rate := limiter.Rate{Period: time.Minute, Limit: int64(cfg.PerMinute)}

	return mgin.NewMiddleware(limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			writeError(c, apperrors.ErrRateLimitExceeded)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// counters unavailable: let the request through
			log.Warn("Rate limiter store failed", logger.Err(err))
			c.Next()
		}),
	), nil
}

func newStore(client *redis.Client) (limiter.Store, error) {
	opts := limiter.StoreOptions{Prefix: rateLimitPrefix, MaxRetry: 3, CleanUpInterval: time.Minute}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	return sredis.NewStoreWithOptions(client, opts)
}

func writeError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.Status, appErr.Envelope(false))
}
