package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danzhq/claimgate/internal/models"
	"github.com/danzhq/claimgate/internal/services"
)

func newClaimsHandler(verification *MockVerificationService, link, sponsor *MockClaimService) *ClaimsHandler {
	return NewClaimsHandler(verification, link, sponsor, testAuditLogger(), nil, "https://danz.example.com")
}

func TestClaimsHandler_Verify_Valid(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, code string) (*services.VerifyResult, error) {
			assert.Equal(t, "ABC123", code)
			return &services.VerifyResult{
				Status:      services.VerifyStatusValid,
				Kind:        models.TokenKindSponsor,
				Tier:        "gold",
				AmountCents: 5000,
			}, nil
		},
	}
	h := newClaimsHandler(verification, &MockClaimService{}, &MockClaimService{})

	req := WithCodeParam(NewTestRequest(t, http.MethodGet, "/claims/ABC123", nil), "ABC123")
	w := httptest.NewRecorder()
	h.Verify(w, req)

	var resp VerifyResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "valid", resp.Status)
	assert.Equal(t, "sponsor", resp.Kind)
	assert.Equal(t, "gold", resp.Tier)
	assert.Equal(t, int64(5000), resp.AmountCents)
}

func TestClaimsHandler_Verify_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		status     services.VerifyStatus
		wantStatus int
		wantError  string
	}{
		{"not found", services.VerifyStatusNotFound, http.StatusNotFound, "not_found"},
		{"expired", services.VerifyStatusExpired, http.StatusGone, "token_expired"},
		{"consumed", services.VerifyStatusConsumed, http.StatusConflict, "token_consumed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verification := &MockVerificationService{
				VerifyFunc: func(ctx context.Context, code string) (*services.VerifyResult, error) {
					return &services.VerifyResult{Status: tc.status}, nil
				},
			}
			h := newClaimsHandler(verification, &MockClaimService{}, &MockClaimService{})

			req := WithCodeParam(NewTestRequest(t, http.MethodGet, "/claims/X", nil), "X")
			w := httptest.NewRecorder()
			h.Verify(w, req)

			AssertErrorResponse(t, w, tc.wantStatus, tc.wantError)
		})
	}
}

func TestClaimsHandler_Verify_MissingCode(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, code string) (*services.VerifyResult, error) {
			return nil, models.ErrBadRequest
		},
	}
	h := newClaimsHandler(verification, &MockClaimService{}, &MockClaimService{})

	req := WithCodeParam(NewTestRequest(t, http.MethodGet, "/claims/", nil), "")
	w := httptest.NewRecorder()
	h.Verify(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestClaimsHandler_Claim_LinkSuccess(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, code string) (*services.VerifyResult, error) {
			return &services.VerifyResult{Status: services.VerifyStatusValid, Kind: models.TokenKindLink, Platform: "telegram"}, nil
		},
	}
	link := &MockClaimService{
		ClaimFunc: func(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error) {
			assert.Equal(t, "LINKCODE", code)
			assert.Equal(t, "acct-1", accountID)
			return &services.ClaimOutcome{RedirectTarget: "/dashboard/rewards", XPAwarded: 250, Platform: "telegram"}, nil
		},
	}
	sponsor := &MockClaimService{
		ClaimFunc: func(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error) {
			t.Fatal("sponsor service must not run for a link token")
			return nil, nil
		},
	}
	h := newClaimsHandler(verification, link, sponsor)

	req := WithAuthContext(WithCodeParam(NewTestRequest(t, http.MethodPost, "/claims/LINKCODE/claim", nil), "LINKCODE"), "acct-1", "dancer")
	w := httptest.NewRecorder()
	h.Claim(w, req)

	var resp ClaimResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "/dashboard/rewards", resp.RedirectTarget)
	assert.Equal(t, int64(250), resp.XPAwarded)
}

func TestClaimsHandler_Claim_SponsorSuccess(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, code string) (*services.VerifyResult, error) {
			return &services.VerifyResult{Status: services.VerifyStatusValid, Kind: models.TokenKindSponsor, Tier: "gold"}, nil
		},
	}
	sponsor := &MockClaimService{
		ClaimFunc: func(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error) {
			return &services.ClaimOutcome{RedirectTarget: "/dashboard/sponsor", Tier: "gold"}, nil
		},
	}
	h := newClaimsHandler(verification, &MockClaimService{}, sponsor)

	req := WithAuthContext(WithCodeParam(NewTestRequest(t, http.MethodPost, "/claims/ABC123/claim", nil), "ABC123"), "acct-1", "dancer")
	w := httptest.NewRecorder()
	h.Claim(w, req)

	var resp ClaimResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "/dashboard/sponsor", resp.RedirectTarget)
	assert.Equal(t, "gold", resp.Tier)
}

func TestClaimsHandler_Claim_Unauthenticated(t *testing.T) {
	h := newClaimsHandler(&MockVerificationService{}, &MockClaimService{}, &MockClaimService{})

	req := WithCodeParam(NewTestRequest(t, http.MethodPost, "/claims/ABC123/claim", nil), "ABC123")
	w := httptest.NewRecorder()
	h.Claim(w, req)

	AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestClaimsHandler_Claim_ConsumedToken(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, code string) (*services.VerifyResult, error) {
			return &services.VerifyResult{Status: services.VerifyStatusConsumed, Kind: models.TokenKindLink}, nil
		},
	}
	h := newClaimsHandler(verification, &MockClaimService{}, &MockClaimService{})

	req := WithAuthContext(WithCodeParam(NewTestRequest(t, http.MethodPost, "/claims/USED/claim", nil), "USED"), "acct-1", "dancer")
	w := httptest.NewRecorder()
	h.Claim(w, req)

	AssertErrorResponse(t, w, http.StatusConflict, "token_consumed")
}

func TestClaimsHandler_Claim_RacingClaimLoses(t *testing.T) {
	// Verification still says valid, but consumption fails: another claim won
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, code string) (*services.VerifyResult, error) {
			return &services.VerifyResult{Status: services.VerifyStatusValid, Kind: models.TokenKindLink}, nil
		},
	}
	link := &MockClaimService{
		ClaimFunc: func(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error) {
			return nil, models.ErrTokenConsumed
		},
	}
	h := newClaimsHandler(verification, link, &MockClaimService{})

	req := WithAuthContext(WithCodeParam(NewTestRequest(t, http.MethodPost, "/claims/RACE/claim", nil), "RACE"), "acct-1", "dancer")
	w := httptest.NewRecorder()
	h.Claim(w, req)

	AssertErrorResponse(t, w, http.StatusConflict, "token_consumed")
}

func TestClaimsHandler_Claim_AlreadyLinked(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, code string) (*services.VerifyResult, error) {
			return &services.VerifyResult{Status: services.VerifyStatusValid, Kind: models.TokenKindLink}, nil
		},
	}
	link := &MockClaimService{
		ClaimFunc: func(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error) {
			return nil, models.ErrAlreadyLinked
		},
	}
	h := newClaimsHandler(verification, link, &MockClaimService{})

	req := WithAuthContext(WithCodeParam(NewTestRequest(t, http.MethodPost, "/claims/DUP/claim", nil), "DUP"), "acct-1", "dancer")
	w := httptest.NewRecorder()
	h.Claim(w, req)

	AssertErrorResponse(t, w, http.StatusConflict, "already_linked")
}

func TestClaimsHandler_QR_RendersPNG(t *testing.T) {
	h := newClaimsHandler(&MockVerificationService{}, &MockClaimService{}, &MockClaimService{})

	req := WithCodeParam(NewTestRequest(t, http.MethodGet, "/claims/ABC123/qr", nil), "ABC123")
	w := httptest.NewRecorder()
	h.QR(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Greater(t, w.Body.Len(), 100, "PNG body should not be empty")
}

func TestClaimsHandler_QR_RejectsBadSize(t *testing.T) {
	h := newClaimsHandler(&MockVerificationService{}, &MockClaimService{}, &MockClaimService{})

	req := WithCodeParam(NewTestRequest(t, http.MethodGet, "/claims/ABC123/qr?size=9999", nil), "ABC123")
	w := httptest.NewRecorder()
	h.QR(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}
