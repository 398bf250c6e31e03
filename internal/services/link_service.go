package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danzhq/claimgate/internal/models"
)

// ClaimTokenRepository defines the interface for claim token operations
type ClaimTokenRepository interface {
	Create(ctx context.Context, token *models.ClaimToken) (*models.ClaimToken, error)
	GetByCode(ctx context.Context, code string) (*models.ClaimToken, error)
	Consume(ctx context.Context, id, accountID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// LinkedAccountRepository defines the interface for linked account operations
type LinkedAccountRepository interface {
	Create(ctx context.Context, link *models.LinkedAccount) (*models.LinkedAccount, error)
	GetByAccountAndPlatform(ctx context.Context, accountID, platform string) (*models.LinkedAccount, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.LinkedAccount, error)
}

// TransactionRunner runs a function with transactional repository access;
// repository calls made with the ctx passed to fn commit or roll back together
type TransactionRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountRepository defines the interface for account operations
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	AddXP(ctx context.Context, id string, amount int64) (int64, error)
}

// ClaimOutcome is the result of a successful claim mutation
type ClaimOutcome struct {
	RedirectTarget string
	XPAwarded      int64
	Platform       string
	Tier           string
}

const linkRedirectTarget = "/dashboard/rewards"

// Alphabet for bot-issued link codes; excludes 0/O and 1/I to survive being
// read aloud or retyped from a chat message.
const linkCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const linkCodeLength = 8

// LinkService owns the chat-platform account linking flow: code issuance on
// behalf of the bot backend, and the claim mutation binding a code to an account.
type LinkService struct {
	tokens      ClaimTokenRepository
	links       LinkedAccountRepository
	accounts    AccountRepository
	email       EmailService
	tx          TransactionRunner
	logger      *slog.Logger
	tokenExpiry time.Duration
	bonusXP     int64
}

// NewLinkService creates a new LinkService
func NewLinkService(
	tokens ClaimTokenRepository,
	links LinkedAccountRepository,
	accounts AccountRepository,
	email EmailService,
	tx TransactionRunner,
	logger *slog.Logger,
	tokenExpiry time.Duration,
	bonusXP int64,
) *LinkService {
	return &LinkService{
		tokens:      tokens,
		links:       links,
		accounts:    accounts,
		email:       email,
		tx:          tx,
		logger:      logger,
		tokenExpiry: tokenExpiry,
		bonusXP:     bonusXP,
	}
}

// IssueCode creates a new link code for an external chat identity. Called by
// the bot backend webhook; the bot relays the code to the user out-of-band.
func (s *LinkService) IssueCode(ctx context.Context, platform, platformUsername string) (*models.ClaimToken, error) {
	code, err := generateLinkCode()
	if err != nil {
		s.logger.Error("failed to generate link code", slog.Any("error", err))
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	token, err := s.tokens.Create(ctx, &models.ClaimToken{
		Code:             code,
		Kind:             models.TokenKindLink,
		Platform:         platform,
		PlatformUsername: platformUsername,
		ExpiresAt:        time.Now().Add(s.tokenExpiry),
	})
	if err != nil {
		s.logger.Error("failed to create link token",
			slog.String("platform", platform),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Info("link code issued",
		slog.String("platform", platform),
		slog.String("token_id", token.ID))

	// Hand the raw code back to the webhook caller; it is never stored on the model
	token.Code = code
	return token, nil
}

// Claim binds a link code to an account, awards the link bonus, and reports
// the redirect target. Token consumption is the idempotency boundary: racing
// claims for the same code fail with ErrTokenConsumed after the first.
func (s *LinkService) Claim(ctx context.Context, code, accountID string) (*ClaimOutcome, error) {
	token, err := s.tokens.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up link token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if token.Kind != models.TokenKindLink {
		return nil, models.ErrBadRequest
	}

	if existing, err := s.links.GetByAccountAndPlatform(ctx, accountID, token.Platform); err == nil && existing != nil {
		return nil, models.ErrAlreadyLinked
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing link", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Consume and Create commit together: a failed link insert must roll the
	// consumption back so the user's retry does not hit ErrTokenConsumed
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.tokens.Consume(ctx, token.ID, accountID); err != nil {
			return err
		}

		_, err := s.links.Create(ctx, &models.LinkedAccount{
			AccountID:        accountID,
			Platform:         token.Platform,
			PlatformUsername: token.PlatformUsername,
		})
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTokenConsumed), errors.Is(err, models.ErrTokenExpired):
			return nil, err
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrAlreadyLinked
		default:
			s.logger.Error("link claim transaction failed",
				slog.String("token_id", token.ID),
				slog.String("account_id", accountID),
				slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	balance, err := s.accounts.AddXP(ctx, accountID, s.bonusXP)
	if err != nil {
		// The link itself succeeded; report it, but flag the missed credit
		s.logger.Error("failed to award link bonus",
			slog.String("account_id", accountID),
			slog.Any("error", err))
	} else {
		s.logger.Info("link bonus awarded",
			slog.String("account_id", accountID),
			slog.Int64("bonus_xp", s.bonusXP),
			slog.Int64("xp_balance", balance))
	}

	s.notifyLinked(ctx, accountID, token.Platform)

	return &ClaimOutcome{
		RedirectTarget: linkRedirectTarget,
		XPAwarded:      s.bonusXP,
		Platform:       token.Platform,
	}, nil
}

// LinkedPlatforms lists the chat platforms already bound to an account, for
// the dashboard's linked-accounts panel.
func (s *LinkService) LinkedPlatforms(ctx context.Context, accountID string) ([]*models.LinkedAccount, error) {
	links, err := s.links.ListByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to list linked accounts",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return links, nil
}

func (s *LinkService) notifyLinked(ctx context.Context, accountID, platform string) {
	if s.email == nil {
		return
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		s.logger.Warn("skipping link confirmation email",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return
	}

	if err := s.email.SendLinkConfirmation(ctx, account.Email, platform, s.bonusXP); err != nil {
		s.logger.Warn("failed to send link confirmation email",
			slog.String("account_id", accountID),
			slog.Any("error", err))
	}
}

func generateLinkCode() (string, error) {
	buf := make([]byte, linkCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	for i, b := range buf {
		buf[i] = linkCodeAlphabet[int(b)%len(linkCodeAlphabet)]
	}

	return string(buf), nil
}
