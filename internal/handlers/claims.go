package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/danzhq/claimgate/internal/auth"
	"github.com/danzhq/claimgate/internal/models"
	"github.com/danzhq/claimgate/internal/services"
	pkghttp "github.com/danzhq/claimgate/pkg/http"
	"github.com/danzhq/claimgate/pkg/logger"
)

// VerificationServiceInterface defines the interface for token verification
type VerificationServiceInterface interface {
	Verify(ctx context.Context, code string) (*services.VerifyResult, error)
}

// LinkServiceInterface defines the interface for the link claim mutation
type LinkServiceInterface interface {
	Claim(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error)
}

// SponsorServiceInterface defines the interface for the sponsor claim mutation
type SponsorServiceInterface interface {
	Claim(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error)
}

// ClaimsHandler handles claim verification and claim mutations
type ClaimsHandler struct {
	verification VerificationServiceInterface
	link         LinkServiceInterface
	sponsor      SponsorServiceInterface
	audit        *logger.AuditLogger
	ipConfig     *pkghttp.IPConfig
	baseURL      string
}

// NewClaimsHandler creates a new ClaimsHandler
func NewClaimsHandler(
	verification VerificationServiceInterface,
	link LinkServiceInterface,
	sponsor SponsorServiceInterface,
	audit *logger.AuditLogger,
	ipConfig *pkghttp.IPConfig,
	baseURL string,
) *ClaimsHandler {
	return &ClaimsHandler{
		verification: verification,
		link:         link,
		sponsor:      sponsor,
		audit:        audit,
		ipConfig:     ipConfig,
		baseURL:      baseURL,
	}
}

// VerifyResponse represents the response body for a verification query
type VerifyResponse struct {
	Status           string `json:"status"`
	Kind             string `json:"kind,omitempty"`
	Platform         string `json:"platform,omitempty"`
	PlatformUsername string `json:"platform_username,omitempty"`
	Tier             string `json:"tier,omitempty"`
	AmountCents      int64  `json:"amount_cents,omitempty"`
}

// ClaimResponse represents the response body for a successful claim
type ClaimResponse struct {
	RedirectTarget string `json:"redirect_target"`
	XPAwarded      int64  `json:"xp_awarded,omitempty"`
	Platform       string `json:"platform,omitempty"`
	Tier           string `json:"tier,omitempty"`
}

// Verify handles GET /claims/{code}. It is read-only: polling it never
// consumes the token. The status maps onto HTTP codes so clients can
// distinguish "not yet visible" (retryable) from dead tokens.
func (h *ClaimsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	result, err := h.verification.Verify(r.Context(), code)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Missing claim code")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	switch result.Status {
	case services.VerifyStatusNotFound:
		pkghttp.WriteNotFound(w, "Claim code not found")
		return
	case services.VerifyStatusExpired:
		pkghttp.WriteGone(w, "token_expired", "This claim code has expired")
		return
	case services.VerifyStatusConsumed:
		pkghttp.WriteConflict(w, "token_consumed", "This claim code was already used")
		return
	}

	writeJSON(w, http.StatusOK, VerifyResponse{
		Status:           string(result.Status),
		Kind:             string(result.Kind),
		Platform:         result.Platform,
		PlatformUsername: result.PlatformUsername,
		Tier:             result.Tier,
		AmountCents:      result.AmountCents,
	})
}

// Claim handles POST /claims/{code}/claim. Requires authentication; the token
// kind decides which claim service runs. Consumption is guarded server-side,
// so a duplicate request gets a conflict rather than a double award.
func (h *ClaimsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAccountFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	code := chi.URLParam(r, "code")
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.verification.Verify(r.Context(), code)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Missing claim code")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	var outcome *services.ClaimOutcome
	switch {
	case result.Status != services.VerifyStatusValid:
		err = claimErrorForStatus(result.Status)
	case result.Kind == models.TokenKindLink:
		outcome, err = h.link.Claim(r.Context(), code, claims.AccountID)
	case result.Kind == models.TokenKindSponsor:
		outcome, err = h.sponsor.Claim(r.Context(), code, claims.AccountID)
	default:
		err = models.ErrBadRequest
	}

	if err != nil {
		h.audit.LogClaimAttempt(string(result.Kind), claims.AccountID, ipAddress, false, err.Error())
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Claim code not found")
		case errors.Is(err, models.ErrTokenExpired):
			pkghttp.WriteGone(w, "token_expired", "This claim code has expired")
		case errors.Is(err, models.ErrTokenConsumed):
			pkghttp.WriteConflict(w, "token_consumed", "This claim code was already used")
		case errors.Is(err, models.ErrAlreadyLinked):
			pkghttp.WriteConflict(w, "already_linked", "This account is already linked to that platform")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid claim code")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	h.audit.LogClaimAttempt(string(result.Kind), claims.AccountID, ipAddress, true, "")

	writeJSON(w, http.StatusOK, ClaimResponse{
		RedirectTarget: outcome.RedirectTarget,
		XPAwarded:      outcome.XPAwarded,
		Platform:       outcome.Platform,
		Tier:           outcome.Tier,
	})
}

// QR handles GET /claims/{code}/qr, rendering the claim page URL as a PNG.
// Bots embed it in chat messages so mobile users can jump straight to the
// claim page. The code is not validated here: a QR for a bad code just leads
// to the error screen.
func (h *ClaimsHandler) QR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		pkghttp.WriteBadRequest(w, "Missing claim code")
		return
	}

	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 128 || parsed > 1024 {
			pkghttp.WriteBadRequest(w, "Size must be between 128 and 1024")
			return
		}
		size = parsed
	}

	png, err := qrcode.Encode(h.baseURL+"/claim/"+code, qrcode.Medium, size)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func claimErrorForStatus(status services.VerifyStatus) error {
	switch status {
	case services.VerifyStatusExpired:
		return models.ErrTokenExpired
	case services.VerifyStatusConsumed:
		return models.ErrTokenConsumed
	default:
		return models.ErrNotFound
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
