package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/danzhq/claimgate/internal/models"
)

func TestDashboardHandler_Summary_LinksAndSponsorship(t *testing.T) {
	linkedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	links := &MockLinkReader{
		LinkedPlatformsFunc: func(ctx context.Context, accountID string) ([]*models.LinkedAccount, error) {
			assert.Equal(t, "acct-1", accountID)
			return []*models.LinkedAccount{
				{Platform: "telegram", PlatformUsername: "dancer99", LinkedAt: linkedAt},
				{Platform: "discord", PlatformUsername: "dancer#1234", LinkedAt: linkedAt},
			}, nil
		},
	}
	sponsors := &MockSponsorReader{
		SponsorshipFunc: func(ctx context.Context, accountID string) (*models.SponsorClaim, error) {
			return &models.SponsorClaim{Tier: "gold", AmountCents: 50000, ClaimedAt: linkedAt}, nil
		},
	}
	h := NewDashboardHandler(links, sponsors)

	req := WithAuthContext(NewTestRequest(t, http.MethodGet, "/accounts/me/claims", nil), "acct-1", "dancer")
	w := httptest.NewRecorder()
	h.Summary(w, req)

	var resp ClaimSummaryResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Len(t, resp.LinkedAccounts, 2)
	assert.Equal(t, "telegram", resp.LinkedAccounts[0].Platform)
	if assert.NotNil(t, resp.Sponsorship) {
		assert.Equal(t, "gold", resp.Sponsorship.Tier)
		assert.Equal(t, int64(50000), resp.Sponsorship.AmountCents)
	}
}

func TestDashboardHandler_Summary_NoClaimsYet(t *testing.T) {
	h := NewDashboardHandler(&MockLinkReader{}, &MockSponsorReader{})

	req := WithAuthContext(NewTestRequest(t, http.MethodGet, "/accounts/me/claims", nil), "acct-1", "dancer")
	w := httptest.NewRecorder()
	h.Summary(w, req)

	var resp ClaimSummaryResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Empty(t, resp.LinkedAccounts)
	assert.Nil(t, resp.Sponsorship)
}

func TestDashboardHandler_Summary_Unauthenticated(t *testing.T) {
	h := NewDashboardHandler(&MockLinkReader{}, &MockSponsorReader{})

	req := NewTestRequest(t, http.MethodGet, "/accounts/me/claims", nil)
	w := httptest.NewRecorder()
	h.Summary(w, req)

	AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestDashboardHandler_Summary_LinkLookupFails(t *testing.T) {
	links := &MockLinkReader{
		LinkedPlatformsFunc: func(ctx context.Context, accountID string) ([]*models.LinkedAccount, error) {
			return nil, models.ErrInternalServer
		},
	}
	h := NewDashboardHandler(links, &MockSponsorReader{})

	req := WithAuthContext(NewTestRequest(t, http.MethodGet, "/accounts/me/claims", nil), "acct-1", "dancer")
	w := httptest.NewRecorder()
	h.Summary(w, req)

	AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}
