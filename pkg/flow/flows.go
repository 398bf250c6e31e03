package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danzhq/claimgate/internal/models"
	"github.com/danzhq/claimgate/internal/services"
)

// TokenVerifier is the slice of the verification service the flows consume
type TokenVerifier interface {
	Verify(ctx context.Context, code string) (*services.VerifyResult, error)
}

// LinkClaimer is the slice of the link service the link flow consumes
type LinkClaimer interface {
	Claim(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error)
}

// SponsorClaimer is the slice of the sponsor service the sponsor flow consumes
type SponsorClaimer interface {
	Claim(ctx context.Context, code, accountID string) (*services.ClaimOutcome, error)
}

// NewLinkFlow builds a controller for the chat-platform linking flow
func NewLinkFlow(code string, verifier TokenVerifier, gate AuthGate, claimer LinkClaimer, cfg Config, logger *slog.Logger) *Controller {
	return New(code,
		&serviceVerifier{verifier: verifier, kind: models.TokenKindLink},
		gate,
		claimFunc(func(ctx context.Context, code string, identity Identity) (ClaimResult, error) {
			outcome, err := claimer.Claim(ctx, code, identity.ID)
			if err != nil {
				return ClaimResult{}, claimError(err)
			}
			return ClaimResult{RedirectTarget: outcome.RedirectTarget}, nil
		}),
		cfg, logger)
}

// NewSponsorFlow builds a controller for the sponsor purchase claim flow
func NewSponsorFlow(code string, verifier TokenVerifier, gate AuthGate, claimer SponsorClaimer, cfg Config, logger *slog.Logger) *Controller {
	return New(code,
		&serviceVerifier{verifier: verifier, kind: models.TokenKindSponsor},
		gate,
		claimFunc(func(ctx context.Context, code string, identity Identity) (ClaimResult, error) {
			outcome, err := claimer.Claim(ctx, code, identity.ID)
			if err != nil {
				return ClaimResult{}, claimError(err)
			}
			return ClaimResult{RedirectTarget: outcome.RedirectTarget}, nil
		}),
		cfg, logger)
}

type claimFunc func(ctx context.Context, code string, identity Identity) (ClaimResult, error)

func (f claimFunc) Claim(ctx context.Context, code string, identity Identity) (ClaimResult, error) {
	return f(ctx, code, identity)
}

// serviceVerifier maps verification service answers onto flow outcomes. A
// token of the wrong kind is reported as not found: the code belongs to the
// other flow and will never verify here.
type serviceVerifier struct {
	verifier TokenVerifier
	kind     models.TokenKind
}

func (v *serviceVerifier) Verify(ctx context.Context, code string) (Outcome, error) {
	result, err := v.verifier.Verify(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return Outcome{Kind: OutcomeTerminal, Reason: ReasonMalformedInput}, nil
		}
		return Outcome{}, err
	}

	switch result.Status {
	case services.VerifyStatusNotFound:
		return Outcome{Kind: OutcomeNotFound}, nil
	case services.VerifyStatusExpired:
		return Outcome{Kind: OutcomeTerminal, Reason: ReasonExpired}, nil
	case services.VerifyStatusConsumed:
		return Outcome{Kind: OutcomeTerminal, Reason: ReasonAlreadyClaimed}, nil
	}

	if result.Kind != v.kind {
		return Outcome{Kind: OutcomeNotFound}, nil
	}

	return Outcome{
		Kind: OutcomeValid,
		Context: Context{
			Platform:         result.Platform,
			PlatformUsername: result.PlatformUsername,
			Tier:             result.Tier,
			AmountCents:      result.AmountCents,
		},
	}, nil
}

// claimError rewrites service errors into messages fit for the error screen
func claimError(err error) error {
	switch {
	case errors.Is(err, models.ErrTokenConsumed), errors.Is(err, models.ErrAlreadyLinked):
		return fmt.Errorf("this code has already been claimed")
	case errors.Is(err, models.ErrTokenExpired):
		return fmt.Errorf("this code has expired")
	case errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("this code is no longer available")
	default:
		return fmt.Errorf("the claim could not be completed, please try again")
	}
}
