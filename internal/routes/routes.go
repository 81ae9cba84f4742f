package routes

import (
	"log/slog"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/handlers"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/middleware"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Locker   *handlers.LockerHandler
	Security *handlers.SecurityHandler
	Admin    *handlers.AdminHandler
}

// Limits configures per-route rate limiting. A non-positive value disables
// the corresponding limiter.
type Limits struct {
	AuthPerMinute   int
	AccessPerMinute int
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokens auth.TokenValidator,
	userRepo auth.UserRepository,
	ipResolver *pkghttp.ClientIPResolver,
	limits Limits,
	logger *slog.Logger,
) {
	authLimit := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestsPerMinute: limits.AuthPerMinute}, ipResolver)
	accessLimit := middleware.RateLimitByLockerAndIP(middleware.RateLimitConfig{RequestsPerMinute: limits.AccessPerMinute}, ipResolver, h.Security.RateLimited)

	// Public routes - no authentication required
	router.With(authLimit).Post("/auth/register", h.Auth.Register)
	router.With(authLimit).Post("/auth/login", h.Auth.Login)
	router.Get("/lockers/available", h.Locker.ListAvailable)

	// Keypad endpoint; the OTP is the credential
	router.With(accessLimit).Post("/security/lockers/{id}/access-attempt", h.Security.AccessAttempt)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Post("/lockers/assign", h.Locker.Assign)
		r.Post("/lockers/my-locker/otp/refresh", h.Locker.RefreshOTP)
		r.Get("/lockers/my-locker", h.Locker.GetMyLocker)
		r.Post("/lockers/my-locker/request-cancel", h.Locker.Cancel)
		r.Post("/lockers/my-locker/request-time-change", h.Locker.RequestTimeChange)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin, logger))
			r.Get("/admin/lockers", h.Admin.ListLockers)
			r.Delete("/admin/lockers/{id}/force-release", h.Admin.ForceRelease)
			r.Get("/admin/locker-requests", h.Admin.ListRequests)
			r.Get("/admin/lockers/{id}/access-logs", h.Admin.ListAccessLogs)
		})
	})
}
