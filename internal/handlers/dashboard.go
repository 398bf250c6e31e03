package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danzhq/claimgate/internal/auth"
	"github.com/danzhq/claimgate/internal/models"
	pkghttp "github.com/danzhq/claimgate/pkg/http"
)

// LinkReaderInterface defines the linked-accounts read used by the dashboard
type LinkReaderInterface interface {
	LinkedPlatforms(ctx context.Context, accountID string) ([]*models.LinkedAccount, error)
}

// SponsorReaderInterface defines the sponsorship read used by the dashboard
type SponsorReaderInterface interface {
	Sponsorship(ctx context.Context, accountID string) (*models.SponsorClaim, error)
}

// DashboardHandler serves the authenticated account's claim history: which
// platforms are linked and whether a sponsorship has been claimed. The claim
// pages point here after a redirect, and the "already claimed" message tells
// users to check this view.
type DashboardHandler struct {
	links    LinkReaderInterface
	sponsors SponsorReaderInterface
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(links LinkReaderInterface, sponsors SponsorReaderInterface) *DashboardHandler {
	return &DashboardHandler{links: links, sponsors: sponsors}
}

// LinkedAccountSummary is one linked chat identity
type LinkedAccountSummary struct {
	Platform         string    `json:"platform"`
	PlatformUsername string    `json:"platform_username"`
	LinkedAt         time.Time `json:"linked_at"`
}

// SponsorshipSummary is the account's claimed sponsorship, if any
type SponsorshipSummary struct {
	Tier        string    `json:"tier"`
	AmountCents int64     `json:"amount_cents"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

// ClaimSummaryResponse is the dashboard claim-history payload
type ClaimSummaryResponse struct {
	LinkedAccounts []LinkedAccountSummary `json:"linked_accounts"`
	Sponsorship    *SponsorshipSummary    `json:"sponsorship,omitempty"`
}

// Summary handles GET /accounts/me/claims
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAccountFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	links, err := h.links.LinkedPlatforms(r.Context(), claims.AccountID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := ClaimSummaryResponse{LinkedAccounts: make([]LinkedAccountSummary, 0, len(links))}
	for _, link := range links {
		resp.LinkedAccounts = append(resp.LinkedAccounts, LinkedAccountSummary{
			Platform:         link.Platform,
			PlatformUsername: link.PlatformUsername,
			LinkedAt:         link.LinkedAt,
		})
	}

	sponsorship, err := h.sponsors.Sponsorship(r.Context(), claims.AccountID)
	switch {
	case err == nil:
		resp.Sponsorship = &SponsorshipSummary{
			Tier:        sponsorship.Tier,
			AmountCents: sponsorship.AmountCents,
			ClaimedAt:   sponsorship.ClaimedAt,
		}
	case errors.Is(err, models.ErrNotFound):
		// No sponsorship claimed; the field stays absent
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
