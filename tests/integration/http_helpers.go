package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/danzhq/claimgate/internal/auth"
	"github.com/danzhq/claimgate/internal/handlers"
	"github.com/danzhq/claimgate/internal/repositories"
	"github.com/danzhq/claimgate/internal/routes"
	"github.com/danzhq/claimgate/internal/services"
	pkghttp "github.com/danzhq/claimgate/pkg/http"
	pkglogger "github.com/danzhq/claimgate/pkg/logger"
)

const (
	testJWTSecret     = "integration-test-secret-0123456789abcdef"
	testWebhookSecret = "integration-webhook-secret"
	testBaseURL       = "https://danz.example.com"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To   string
	Kind string
}

// CapturingEmailService records outbound email for test assertions
type CapturingEmailService struct {
	mu   sync.Mutex
	sent []SentEmail
}

func (m *CapturingEmailService) SendLinkConfirmation(ctx context.Context, email, platform string, bonusXP int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentEmail{To: email, Kind: "link_confirmation"})
	return nil
}

func (m *CapturingEmailService) SendSponsorReceipt(ctx context.Context, email, tier string, amountCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentEmail{To: email, Kind: "sponsor_receipt"})
	return nil
}

// Sent returns a copy of the captured messages
func (m *CapturingEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}

// TestServer wraps httptest.Server with a real database and mocked email
type TestServer struct {
	Server       *httptest.Server
	DB           *TestDB
	EmailService *CapturingEmailService
	TokenManager *auth.TokenManager
}

// NewTestServer wires the full HTTP stack over the given test database
func NewTestServer(db *TestDB) (*TestServer, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	emailService := &CapturingEmailService{}

	accountRepo := repositories.NewAccountRepository(db.DB)
	tokenRepo := repositories.NewClaimTokenRepository(db.DB)
	linkRepo := repositories.NewLinkedAccountRepository(db.DB)
	sponsorRepo := repositories.NewSponsorClaimRepository(db.DB)

	tokenManager := auth.NewTokenManager(testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	auditLogger := pkglogger.NewAuditLogger(logger)

	verificationService, err := services.NewVerificationService(tokenRepo, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build verification service: %w", err)
	}
	linkService := services.NewLinkService(tokenRepo, linkRepo, accountRepo, emailService, db.DB, logger, 24*time.Hour, 250)
	sponsorService := services.NewSponsorService(tokenRepo, sponsorRepo, accountRepo, emailService, db.DB, logger, 24*time.Hour)
	authService := services.NewAuthService(accountRepo, tokenManager, logger, auditLogger)

	ipConfig := pkghttp.DefaultIPConfig()
	claimsHandler := handlers.NewClaimsHandler(verificationService, linkService, sponsorService, auditLogger, ipConfig, testBaseURL)
	webhookHandler := handlers.NewWebhookHandler(linkService, sponsorService, testWebhookSecret, testBaseURL)
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	dashboardHandler := handlers.NewDashboardHandler(linkService, sponsorService)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	routes.RegisterRoutes(router, claimsHandler, webhookHandler, authHandler, dashboardHandler, tokenManager)

	return &TestServer{
		Server:       httptest.NewServer(router),
		DB:           db,
		EmailService: emailService,
		TokenManager: tokenManager,
	}, nil
}

// Close shuts down the HTTP server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// AccessTokenFor mints an access token for a seeded account
func (ts *TestServer) AccessTokenFor(accountID, email, handle string) (string, error) {
	return ts.TokenManager.GenerateAccessToken(accountID, email, handle)
}

// DoJSON issues a request with an optional JSON body and bearer token
func (ts *TestServer) DoJSON(method, path, bearer string, body interface{}) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return http.DefaultClient.Do(req)
}

// DoWebhook issues a signed issuance webhook request
func (ts *TestServer) DoWebhook(path string, body interface{}) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", testWebhookSecret)

	return http.DefaultClient.Do(req)
}

// DecodeJSON decodes a response body into target and closes it
func DecodeJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
