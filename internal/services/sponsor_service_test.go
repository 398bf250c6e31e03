package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danzhq/claimgate/internal/models"
)

func newSponsorService(tokens ClaimTokenRepository, claims SponsorClaimRepository, accounts AccountRepository, email EmailService) *SponsorService {
	return NewSponsorService(tokens, claims, accounts, email, &MockTransactionRunner{}, testLogger(), 24*time.Hour)
}

func TestSponsorService_RecordPurchase_Success(t *testing.T) {
	var created *models.ClaimToken
	tokens := &MockClaimTokenRepository{
		CreateFunc: func(ctx context.Context, token *models.ClaimToken) (*models.ClaimToken, error) {
			created = token
			stored := *token
			stored.ID = "tok-1"
			return &stored, nil
		},
	}
	svc := newSponsorService(tokens, &MockSponsorClaimRepository{}, &MockAccountRepository{}, nil)

	token, err := svc.RecordPurchase(context.Background(), "gold", 50000)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(token.Code)
	assert.NoError(t, parseErr, "sponsor codes are UUIDs")
	assert.Equal(t, models.TokenKindSponsor, created.Kind)
	assert.Equal(t, "gold", created.Tier)
	assert.Equal(t, int64(50000), created.AmountCents)
}

func TestSponsorService_RecordPurchase_RejectsInvalidInput(t *testing.T) {
	svc := newSponsorService(&MockClaimTokenRepository{}, &MockSponsorClaimRepository{}, &MockAccountRepository{}, nil)

	_, err := svc.RecordPurchase(context.Background(), "", 50000)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.RecordPurchase(context.Background(), "gold", 0)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestSponsorService_Claim_Success(t *testing.T) {
	tokens := &MockClaimTokenRepository{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
			return &models.ClaimToken{
				ID: "tok-1", Kind: models.TokenKindSponsor,
				Tier: "gold", AmountCents: 50000,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	var recorded *models.SponsorClaim
	claims := &MockSponsorClaimRepository{
		CreateFunc: func(ctx context.Context, claim *models.SponsorClaim) (*models.SponsorClaim, error) {
			recorded = claim
			return claim, nil
		},
	}
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return &models.Account{ID: id, Email: "sponsor@example.com"}, nil
		},
	}
	receiptSent := false
	email := &MockEmailService{
		SendSponsorReceiptFunc: func(ctx context.Context, addr, tier string, amountCents int64) error {
			receiptSent = true
			assert.Equal(t, "gold", tier)
			assert.Equal(t, int64(50000), amountCents)
			return nil
		},
	}
	svc := newSponsorService(tokens, claims, accounts, email)

	outcome, err := svc.Claim(context.Background(), "ABC123", "acct-1")
	require.NoError(t, err)

	assert.Equal(t, "/dashboard/sponsor", outcome.RedirectTarget)
	assert.Equal(t, "gold", outcome.Tier)
	assert.Equal(t, "tok-1", recorded.TokenID)
	assert.Equal(t, "acct-1", recorded.AccountID)
	assert.True(t, receiptSent)
}

func TestSponsorService_Claim_RecordFailureRollsBackConsume(t *testing.T) {
	var consumed bool
	tokens := &MockClaimTokenRepository{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
			return &models.ClaimToken{
				ID: "tok-1", Kind: models.TokenKindSponsor,
				Tier: "gold", AmountCents: 50000,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		ConsumeFunc: func(ctx context.Context, id, accountID string) error {
			consumed = true
			return nil
		},
	}
	claims := &MockSponsorClaimRepository{
		CreateFunc: func(ctx context.Context, claim *models.SponsorClaim) (*models.SponsorClaim, error) {
			return nil, errors.New("connection reset")
		},
	}
	runner := &MockTransactionRunner{}
	svc := NewSponsorService(tokens, claims, &MockAccountRepository{}, nil, runner, testLogger(), 24*time.Hour)

	_, err := svc.Claim(context.Background(), uuid.New().String(), "acct-1")
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.True(t, consumed, "consumption ran inside the transaction before the record failed")
	assert.Equal(t, 1, runner.Calls, "consume and record must share one transaction")
}

func TestSponsorService_Claim_ExpiredToken(t *testing.T) {
	tokens := &MockClaimTokenRepository{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
			return &models.ClaimToken{ID: "tok-1", Kind: models.TokenKindSponsor, ExpiresAt: time.Now().Add(-time.Hour)}, nil
		},
		ConsumeFunc: func(ctx context.Context, id, accountID string) error {
			return models.ErrTokenExpired
		},
	}
	claims := &MockSponsorClaimRepository{
		CreateFunc: func(ctx context.Context, claim *models.SponsorClaim) (*models.SponsorClaim, error) {
			t.Fatal("claim must not be recorded for an expired token")
			return nil, nil
		},
	}
	svc := newSponsorService(tokens, claims, &MockAccountRepository{}, nil)

	_, err := svc.Claim(context.Background(), "ABC123", "acct-1")
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestSponsorService_Claim_WrongTokenKind(t *testing.T) {
	tokens := &MockClaimTokenRepository{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
			return &models.ClaimToken{ID: "tok-1", Kind: models.TokenKindLink, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	svc := newSponsorService(tokens, &MockSponsorClaimRepository{}, &MockAccountRepository{}, nil)

	_, err := svc.Claim(context.Background(), "LINKCODE", "acct-1")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestSponsorService_Claim_UnknownCode(t *testing.T) {
	svc := newSponsorService(&MockClaimTokenRepository{}, &MockSponsorClaimRepository{}, &MockAccountRepository{}, nil)

	_, err := svc.Claim(context.Background(), "NOPE", "acct-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
