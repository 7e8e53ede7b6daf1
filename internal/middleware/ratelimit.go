package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/catalog-proxy/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const clientRateLimitPrefix = "catalog-proxy:client-limit"

// ClientRateLimit throttles each client IP at rate, a ulule formatted rate such as
// "120-M". Counters live in redis when redisClient is set, else in process memory.
// An empty rate disables the middleware.
func ClientRateLimit(rate string, redisClient *redis.Client, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	var store limiter.Store
	if redisClient != nil {
		store, err = redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: clientRateLimitPrefix})
		if err != nil {
			return nil, err
		}
	} else {
		store = memorystore.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          clientRateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	instance := limiter.New(store, parsed)
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			retryAfter := retryAfterFromReset(w.Header().Get("X-RateLimit-Reset"), time.Now())
			logger.Warn("client_rate_limit_exceeded",
				zap.String("client_ip", request.ClientIP(r)),
				zap.Int("retry_after_seconds", retryAfter),
			)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			respondErrorJSON(w, r, http.StatusTooManyRequests, ErrorResponse{
				Error:      "Rate limit exceeded",
				Message:    "Too many requests from this client, please try again later",
				RetryAfter: retryAfter,
			}, logger)
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("client_rate_limit_store_failed", zap.Error(err))
			respondErrorJSON(w, r, http.StatusInternalServerError, ErrorResponse{
				Error:   "Internal Server Error",
				Message: "Rate limiter unavailable",
			}, logger)
		}),
	)
	return mw.Handler, nil
}

// retryAfterFromReset converts a unix reset timestamp into whole seconds, minimum 1.
func retryAfterFromReset(reset string, now time.Time) int {
	unix, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return 1
	}
	secs := int(math.Ceil(time.Unix(unix, 0).Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
