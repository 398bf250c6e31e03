package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/danzhq/claimgate/internal/auth"
	"github.com/danzhq/claimgate/internal/handlers"
	"github.com/danzhq/claimgate/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	claimsHandler *handlers.ClaimsHandler,
	webhookHandler *handlers.WebhookHandler,
	authHandler *handlers.AuthHandler,
	dashboardHandler *handlers.DashboardHandler,
	tokenManager *auth.TokenManager,
) {
	authRateLimit := middleware.DefaultAuthRateLimit()
	verifyRateLimit := middleware.DefaultVerifyRateLimit()
	claimRateLimit := middleware.DefaultClaimRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/refresh", authHandler.RefreshToken)
	router.With(auth.OptionalMiddleware(tokenManager)).Get("/auth/session", authHandler.Session)

	// Verification is public: the claim page polls it before login
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(verifyRateLimit))
		r.Get("/claims/{code}", claimsHandler.Verify)
		r.Get("/claims/{code}/qr", claimsHandler.QR)
	})

	// Claim mutations require an authenticated account
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))
		r.Use(middleware.RateLimitByAccount(claimRateLimit))
		r.Post("/claims/{code}/claim", claimsHandler.Claim)
	})

	// Dashboard read of the account's own claim history
	router.With(auth.Middleware(tokenManager)).Get("/accounts/me/claims", dashboardHandler.Summary)

	// Machine-to-machine issuance, authenticated by shared secret inside the handler
	router.Post("/internal/tokens/link", webhookHandler.IssueLinkCode)
	router.Post("/internal/tokens/sponsor", webhookHandler.RecordSponsorPurchase)
}
