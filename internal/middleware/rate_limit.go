package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns default rate limit config for auth endpoints (5 requests per minute)
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 5,
	}
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

// RateLimitByIP limits requests per client IP. A non-positive limit
// disables the middleware.
func RateLimitByIP(config RateLimitConfig, ipResolver *pkghttp.ClientIPResolver) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		return passthrough
	}
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ipResolver.ClientIP(r), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitByLockerAndIP limits guesses against one locker from one client,
// keyed on the {id} route parameter. onLimit answers rejected requests; nil
// selects a plain 429.
func RateLimitByLockerAndIP(config RateLimitConfig, ipResolver *pkghttp.ClientIPResolver, onLimit http.HandlerFunc) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		return passthrough
	}
	if onLimit == nil {
		onLimit = limitExceeded
	}
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(
			func(r *http.Request) (string, error) {
				return chi.URLParam(r, "id"), nil
			},
			func(r *http.Request) (string, error) {
				return ipResolver.ClientIP(r), nil
			},
		),
		httprate.WithLimitHandler(onLimit),
	)
}

func passthrough(next http.Handler) http.Handler {
	return next
}
