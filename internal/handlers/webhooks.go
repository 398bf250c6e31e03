package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danzhq/claimgate/internal/models"
	pkghttp "github.com/danzhq/claimgate/pkg/http"
)

// LinkIssuerInterface defines the interface for link code issuance
type LinkIssuerInterface interface {
	IssueCode(ctx context.Context, platform, platformUsername string) (*models.ClaimToken, error)
}

// SponsorRecorderInterface defines the interface for recording sponsor purchases
type SponsorRecorderInterface interface {
	RecordPurchase(ctx context.Context, tier string, amountCents int64) (*models.ClaimToken, error)
}

// WebhookHandler handles inbound token issuance from the bot backends and the
// payment provider. These endpoints authenticate with a shared secret, not a
// user session: the caller is a machine, never a browser.
type WebhookHandler struct {
	link    LinkIssuerInterface
	sponsor SponsorRecorderInterface
	secret  string
	baseURL string
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(link LinkIssuerInterface, sponsor SponsorRecorderInterface, secret, baseURL string) *WebhookHandler {
	return &WebhookHandler{
		link:    link,
		sponsor: sponsor,
		secret:  secret,
		baseURL: baseURL,
	}
}

// IssueLinkCodeRequest represents the request body for link code issuance
type IssueLinkCodeRequest struct {
	Platform         string `json:"platform" validate:"required,oneof=telegram discord farcaster openclaw"`
	PlatformUsername string `json:"platform_username" validate:"required,min=1,max=128"`
}

// RecordPurchaseRequest represents the request body for a settled sponsor purchase
type RecordPurchaseRequest struct {
	Tier        string `json:"tier" validate:"required,oneof=bronze silver gold headline"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
}

// TokenIssuedResponse represents the response body for issued tokens. The raw
// code appears here and nowhere else; it is never readable back out of the API.
type TokenIssuedResponse struct {
	Code      string    `json:"code"`
	Kind      string    `json:"kind"`
	ClaimURL  string    `json:"claim_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueLinkCode handles POST /internal/tokens/link
func (h *WebhookHandler) IssueLinkCode(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		pkghttp.WriteUnauthorized(w, "Invalid webhook secret")
		return
	}

	var req IssueLinkCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	token, err := h.link.IssueCode(r.Context(), req.Platform, req.PlatformUsername)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to issue link code")
		return
	}

	writeJSON(w, http.StatusCreated, TokenIssuedResponse{
		Code:      token.Code,
		Kind:      string(token.Kind),
		ClaimURL:  h.baseURL + "/claim/" + token.Code,
		ExpiresAt: token.ExpiresAt,
	})
}

// RecordSponsorPurchase handles POST /internal/tokens/sponsor
func (h *WebhookHandler) RecordSponsorPurchase(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		pkghttp.WriteUnauthorized(w, "Invalid webhook secret")
		return
	}

	var req RecordPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	token, err := h.sponsor.RecordPurchase(r.Context(), req.Tier, req.AmountCents)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to record purchase")
		return
	}

	writeJSON(w, http.StatusCreated, TokenIssuedResponse{
		Code:      token.Code,
		Kind:      string(token.Kind),
		ClaimURL:  h.baseURL + "/sponsor/claim/" + token.Code,
		ExpiresAt: token.ExpiresAt,
	})
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	provided := r.Header.Get("X-Webhook-Secret")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) == 1
}
