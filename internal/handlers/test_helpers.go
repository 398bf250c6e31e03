package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/danzhq/claimgate/internal/auth"
	"github.com/danzhq/claimgate/internal/models"
	"github.com/danzhq/claimgate/internal/services"
	pkghttp "github.com/danzhq/claimgate/pkg/http"
	"github.com/danzhq/claimgate/pkg/logger"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithCodeParam injects a chi route parameter so handlers reading
// chi.URLParam(r, "code") work outside a mounted router
func WithCodeParam(req *http.Request, code string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("code", code)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// WithAuthContext adds account claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, accountID, handle string) *http.Request {
	claims := &models.TokenClaims{
		AccountID: accountID,
		Handle:    handle,
		Type:      "access",
	}
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

func testAuditLogger() *logger.AuditLogger {
	return logger.NewAuditLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	VerifyFunc func(ctx context.Context, code string) (*services.VerifyResult, error)
}

func (m *MockVerificationService) Verify(ctx context.Context, code string) (*services.VerifyResult, error) {
	if m.VerifyFunc == nil {
		return &services.VerifyResult{Status: services.VerifyStatusNotFound}, nil
	}
	return m.VerifyFunc(ctx, code)
}

// MockClaimService implements LinkServiceInterface and SponsorServiceInterface for testing
type MockClaimService struct {
	ClaimFunc func(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error)
}

func (m *MockClaimService) Claim(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error) {
	if m.ClaimFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.ClaimFunc(ctx, code, accountID)
}

// MockLinkIssuer implements LinkIssuerInterface for testing
type MockLinkIssuer struct {
	IssueCodeFunc func(ctx context.Context, platform, platformUsername string) (*models.ClaimToken, error)
}

func (m *MockLinkIssuer) IssueCode(ctx context.Context, platform, platformUsername string) (*models.ClaimToken, error) {
	if m.IssueCodeFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.IssueCodeFunc(ctx, platform, platformUsername)
}

// MockSponsorRecorder implements SponsorRecorderInterface for testing
type MockSponsorRecorder struct {
	RecordPurchaseFunc func(ctx context.Context, tier string, amountCents int64) (*models.ClaimToken, error)
}

func (m *MockSponsorRecorder) RecordPurchase(ctx context.Context, tier string, amountCents int64) (*models.ClaimToken, error) {
	if m.RecordPurchaseFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RecordPurchaseFunc(ctx, tier, amountCents)
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, ipAddress)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshTokenFunc(ctx, refreshToken)
}

// MockLinkReader implements LinkReaderInterface for testing
type MockLinkReader struct {
	LinkedPlatformsFunc func(ctx context.Context, accountID string) ([]*models.LinkedAccount, error)
}

func (m *MockLinkReader) LinkedPlatforms(ctx context.Context, accountID string) ([]*models.LinkedAccount, error) {
	if m.LinkedPlatformsFunc == nil {
		return []*models.LinkedAccount{}, nil
	}
	return m.LinkedPlatformsFunc(ctx, accountID)
}

// MockSponsorReader implements SponsorReaderInterface for testing
type MockSponsorReader struct {
	SponsorshipFunc func(ctx context.Context, accountID string) (*models.SponsorClaim, error)
}

func (m *MockSponsorReader) Sponsorship(ctx context.Context, accountID string) (*models.SponsorClaim, error) {
	if m.SponsorshipFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SponsorshipFunc(ctx, accountID)
}
