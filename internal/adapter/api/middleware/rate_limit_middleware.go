package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"snappin/internal/infrastructure/ratelimit"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
	"snappin/pkg/response"
)

// RateLimit spends one token of action per request. Authenticated requests
// are keyed by user id, the rest by client IP.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get(ContextUserID).(string)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, retryAfter := limiter.Allow(key, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s blocked for %s (retry in %v)", action, key, retryAfter)
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded, retry in "+strconv.Itoa(seconds)+"s"))
			}

			return next(c)
		}
	}
}
