package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danzhq/claimgate/internal/models"
	"github.com/google/uuid"
)

// SponsorClaimRepository defines the interface for sponsor claim records
type SponsorClaimRepository interface {
	Create(ctx context.Context, claim *models.SponsorClaim) (*models.SponsorClaim, error)
	GetByAccount(ctx context.Context, accountID string) (*models.SponsorClaim, error)
}

const sponsorRedirectTarget = "/dashboard/sponsor"

// SponsorService owns the sponsor purchase claim flow: recording paid
// purchases from the payment webhook, and binding a claim token to the
// purchasing account.
type SponsorService struct {
	tokens      ClaimTokenRepository
	claims      SponsorClaimRepository
	accounts    AccountRepository
	email       EmailService
	tx          TransactionRunner
	logger      *slog.Logger
	tokenExpiry time.Duration
}

// NewSponsorService creates a new SponsorService
func NewSponsorService(
	tokens ClaimTokenRepository,
	claims SponsorClaimRepository,
	accounts AccountRepository,
	email EmailService,
	tx TransactionRunner,
	logger *slog.Logger,
	tokenExpiry time.Duration,
) *SponsorService {
	return &SponsorService{
		tokens:      tokens,
		claims:      claims,
		accounts:    accounts,
		email:       email,
		tx:          tx,
		logger:      logger,
		tokenExpiry: tokenExpiry,
	}
}

// RecordPurchase creates a claim token for a completed payment. Called by the
// payment webhook handler after settlement; the token code ends up in the
// buyer's confirmation link. The claim page may be opened before this webhook
// lands, which is why verification treats not-found as retryable.
func (s *SponsorService) RecordPurchase(ctx context.Context, tier string, amountCents int64) (*models.ClaimToken, error) {
	if tier == "" || amountCents <= 0 {
		return nil, models.ErrBadRequest
	}

	code := uuid.New().String()

	token, err := s.tokens.Create(ctx, &models.ClaimToken{
		Code:        code,
		Kind:        models.TokenKindSponsor,
		Tier:        tier,
		AmountCents: amountCents,
		ExpiresAt:   time.Now().Add(s.tokenExpiry),
	})
	if err != nil {
		s.logger.Error("failed to create sponsor token",
			slog.String("tier", tier),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Info("sponsor purchase recorded",
		slog.String("tier", tier),
		slog.Int64("amount_cents", amountCents),
		slog.String("token_id", token.ID))

	token.Code = code
	return token, nil
}

// Claim binds a purchase token to the authenticated account and records the
// sponsorship. Consumption of the token is the at-most-once boundary.
func (s *SponsorService) Claim(ctx context.Context, code, accountID string) (*ClaimOutcome, error) {
	token, err := s.tokens.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up sponsor token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if token.Kind != models.TokenKindSponsor {
		return nil, models.ErrBadRequest
	}

	// Consume and Create commit together: if recording the sponsorship fails
	// the token must stay unconsumed so the claim can be retried
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.tokens.Consume(ctx, token.ID, accountID); err != nil {
			return err
		}

		_, err := s.claims.Create(ctx, &models.SponsorClaim{
			AccountID:   accountID,
			TokenID:     token.ID,
			Tier:        token.Tier,
			AmountCents: token.AmountCents,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrTokenConsumed) || errors.Is(err, models.ErrTokenExpired) {
			return nil, err
		}
		s.logger.Error("sponsor claim transaction failed",
			slog.String("account_id", accountID),
			slog.String("token_id", token.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("sponsor purchase claimed",
		slog.String("account_id", accountID),
		slog.String("tier", token.Tier))

	s.sendReceipt(ctx, accountID, token)

	return &ClaimOutcome{
		RedirectTarget: sponsorRedirectTarget,
		Tier:           token.Tier,
	}, nil
}

// Sponsorship reports the account's claimed sponsorship for the dashboard;
// ErrNotFound means the account has not claimed one.
func (s *SponsorService) Sponsorship(ctx context.Context, accountID string) (*models.SponsorClaim, error) {
	claim, err := s.claims.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up sponsorship",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return claim, nil
}

func (s *SponsorService) sendReceipt(ctx context.Context, accountID string, token *models.ClaimToken) {
	if s.email == nil {
		return
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		s.logger.Warn("skipping sponsor receipt email",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return
	}

	if err := s.email.SendSponsorReceipt(ctx, account.Email, token.Tier, token.AmountCents); err != nil {
		s.logger.Warn("failed to send sponsor receipt email",
			slog.String("account_id", accountID),
			slog.Any("error", err))
	}
}
