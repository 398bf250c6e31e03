package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/danzhq/claimgate/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockClaimTokenRepository implements ClaimTokenRepository for testing
type MockClaimTokenRepository struct {
	CreateFunc         func(ctx context.Context, token *models.ClaimToken) (*models.ClaimToken, error)
	GetByCodeFunc      func(ctx context.Context, code string) (*models.ClaimToken, error)
	ConsumeFunc        func(ctx context.Context, id, accountID string) error
	CleanupExpiredFunc func(ctx context.Context) (int64, error)
}

func (m *MockClaimTokenRepository) Create(ctx context.Context, token *models.ClaimToken) (*models.ClaimToken, error) {
	if m.CreateFunc == nil {
		return token, nil
	}
	return m.CreateFunc(ctx, token)
}

func (m *MockClaimTokenRepository) GetByCode(ctx context.Context, code string) (*models.ClaimToken, error) {
	if m.GetByCodeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByCodeFunc(ctx, code)
}

func (m *MockClaimTokenRepository) Consume(ctx context.Context, id, accountID string) error {
	if m.ConsumeFunc == nil {
		return nil
	}
	return m.ConsumeFunc(ctx, id, accountID)
}

func (m *MockClaimTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc == nil {
		return 0, nil
	}
	return m.CleanupExpiredFunc(ctx)
}

// MockLinkedAccountRepository implements LinkedAccountRepository for testing
type MockLinkedAccountRepository struct {
	CreateFunc                  func(ctx context.Context, link *models.LinkedAccount) (*models.LinkedAccount, error)
	GetByAccountAndPlatformFunc func(ctx context.Context, accountID, platform string) (*models.LinkedAccount, error)
	ListByAccountFunc           func(ctx context.Context, accountID string) ([]*models.LinkedAccount, error)
}

func (m *MockLinkedAccountRepository) Create(ctx context.Context, link *models.LinkedAccount) (*models.LinkedAccount, error) {
	if m.CreateFunc == nil {
		return link, nil
	}
	return m.CreateFunc(ctx, link)
}

func (m *MockLinkedAccountRepository) GetByAccountAndPlatform(ctx context.Context, accountID, platform string) (*models.LinkedAccount, error) {
	if m.GetByAccountAndPlatformFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByAccountAndPlatformFunc(ctx, accountID, platform)
}

func (m *MockLinkedAccountRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.LinkedAccount, error) {
	if m.ListByAccountFunc == nil {
		return nil, nil
	}
	return m.ListByAccountFunc(ctx, accountID)
}

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.Account, error)
	AddXPFunc      func(ctx context.Context, id string, amount int64) (int64, error)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByEmailFunc(ctx, email)
}

func (m *MockAccountRepository) AddXP(ctx context.Context, id string, amount int64) (int64, error) {
	if m.AddXPFunc == nil {
		return amount, nil
	}
	return m.AddXPFunc(ctx, id, amount)
}

// MockSponsorClaimRepository implements SponsorClaimRepository for testing
type MockSponsorClaimRepository struct {
	CreateFunc       func(ctx context.Context, claim *models.SponsorClaim) (*models.SponsorClaim, error)
	GetByAccountFunc func(ctx context.Context, accountID string) (*models.SponsorClaim, error)
}

func (m *MockSponsorClaimRepository) Create(ctx context.Context, claim *models.SponsorClaim) (*models.SponsorClaim, error) {
	if m.CreateFunc == nil {
		return claim, nil
	}
	return m.CreateFunc(ctx, claim)
}

func (m *MockSponsorClaimRepository) GetByAccount(ctx context.Context, accountID string) (*models.SponsorClaim, error) {
	if m.GetByAccountFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByAccountFunc(ctx, accountID)
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendLinkConfirmationFunc func(ctx context.Context, email, platform string, bonusXP int64) error
	SendSponsorReceiptFunc   func(ctx context.Context, email, tier string, amountCents int64) error
}

func (m *MockEmailService) SendLinkConfirmation(ctx context.Context, email, platform string, bonusXP int64) error {
	if m.SendLinkConfirmationFunc == nil {
		return nil
	}
	return m.SendLinkConfirmationFunc(ctx, email, platform, bonusXP)
}

func (m *MockEmailService) SendSponsorReceipt(ctx context.Context, email, tier string, amountCents int64) error {
	if m.SendSponsorReceiptFunc == nil {
		return nil
	}
	return m.SendSponsorReceiptFunc(ctx, email, tier, amountCents)
}

// MockTransactionRunner runs the function inline; Calls counts invocations
type MockTransactionRunner struct {
	Calls               int
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *MockTransactionRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}
