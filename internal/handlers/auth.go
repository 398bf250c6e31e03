package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/danzhq/claimgate/internal/auth"
	"github.com/danzhq/claimgate/internal/models"
	"github.com/danzhq/claimgate/internal/services"
	pkghttp "github.com/danzhq/claimgate/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionResponse reports the auth provider's view of the caller. Claim pages
// poll it to decide between the login prompt and the claim mutation; ready is
// always true once the service answers at all.
type SessionResponse struct {
	Ready         bool   `json:"ready"`
	Authenticated bool   `json:"authenticated"`
	AccountID     string `json:"account_id,omitempty"`
	Handle        string `json:"handle,omitempty"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized),
			errors.Is(err, models.ErrAccountDisabled),
			errors.Is(err, models.ErrAccountSuspended):
			// One generic answer for every failure mode to prevent enumeration
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, authResp)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	authResp, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized),
			errors.Is(err, models.ErrAccountDisabled),
			errors.Is(err, models.ErrAccountSuspended):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, authResp)
}

// Session handles GET /auth/session. Mounted behind the optional auth
// middleware so anonymous callers get {ready, authenticated: false} instead
// of a 401.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{Ready: true}

	if claims := auth.GetAccountFromContext(r); claims != nil {
		resp.Authenticated = true
		resp.AccountID = claims.AccountID
		resp.Handle = claims.Handle
	}

	writeJSON(w, http.StatusOK, resp)
}
