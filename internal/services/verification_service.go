package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danzhq/claimgate/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// VerifyStatus is the outcome of a token verification query
type VerifyStatus string

const (
	// VerifyStatusValid means the token exists, is unconsumed and unexpired
	VerifyStatusValid VerifyStatus = "valid"
	// VerifyStatusNotFound means no token matches the code. Callers may retry:
	// issuance is asynchronous (bot backends, payment webhooks) and the record
	// can lag behind the link handed to the user.
	VerifyStatusNotFound VerifyStatus = "not_found"
	// VerifyStatusExpired means the token exists but is past its expiry
	VerifyStatusExpired VerifyStatus = "expired"
	// VerifyStatusConsumed means the token exists but was already claimed
	VerifyStatusConsumed VerifyStatus = "consumed"
)

// VerifyResult carries the verification status plus flow-specific context
type VerifyResult struct {
	Status           VerifyStatus
	Kind             models.TokenKind
	Platform         string
	PlatformUsername string
	Tier             string
	AmountCents      int64
}

// ClaimTokenReader is the read-only slice of the token repository the verifier needs
type ClaimTokenReader interface {
	GetByCode(ctx context.Context, code string) (*models.ClaimToken, error)
}

// VerificationService answers token verification queries. It never mutates
// server state. Expired and consumed results are cached: a token in either
// state can never become valid again, so serving the cached answer to clients
// that keep polling is always correct.
type VerificationService struct {
	tokens        ClaimTokenReader
	logger        *slog.Logger
	terminalCache *lru.Cache[string, VerifyResult]
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(tokens ClaimTokenReader, logger *slog.Logger) (*VerificationService, error) {
	cache, err := lru.New[string, VerifyResult](1024)
	if err != nil {
		return nil, err
	}

	return &VerificationService{
		tokens:        tokens,
		logger:        logger,
		terminalCache: cache,
	}, nil
}

// Verify looks up a token by code and classifies it. An empty code is a caller
// bug; the claim flows reject it before ever reaching the verifier.
func (s *VerificationService) Verify(ctx context.Context, code string) (*VerifyResult, error) {
	if code == "" {
		return nil, models.ErrBadRequest
	}

	if cached, ok := s.terminalCache.Get(code); ok {
		return &cached, nil
	}

	token, err := s.tokens.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Not cached: the record may still appear once issuance catches up
			return &VerifyResult{Status: VerifyStatusNotFound}, nil
		}
		s.logger.Error("failed to look up claim token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	result := resultFromToken(token)
	switch result.Status {
	case VerifyStatusExpired, VerifyStatusConsumed:
		s.terminalCache.Add(code, *result)
	}

	return result, nil
}

func resultFromToken(token *models.ClaimToken) *VerifyResult {
	result := &VerifyResult{
		Kind:             token.Kind,
		Platform:         token.Platform,
		PlatformUsername: token.PlatformUsername,
		Tier:             token.Tier,
		AmountCents:      token.AmountCents,
	}

	switch {
	case token.IsConsumed():
		result.Status = VerifyStatusConsumed
	case token.IsExpired():
		result.Status = VerifyStatusExpired
	default:
		result.Status = VerifyStatusValid
	}

	return result
}
