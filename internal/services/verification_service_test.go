package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danzhq/claimgate/internal/models"
)

func newVerificationService(t *testing.T, tokens ClaimTokenReader) *VerificationService {
	t.Helper()
	svc, err := NewVerificationService(tokens, testLogger())
	require.NoError(t, err)
	return svc
}

func TestVerificationService_Verify_EmptyCode(t *testing.T) {
	calls := 0
	tokens := &MockClaimTokenRepository{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
			calls++
			return nil, models.ErrNotFound
		},
	}
	svc := newVerificationService(t, tokens)

	_, err := svc.Verify(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.Equal(t, 0, calls, "empty code must never touch the repository")
}

func TestVerificationService_Verify_Valid(t *testing.T) {
	tokens := &MockClaimTokenRepository{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
			return &models.ClaimToken{
				ID:          "tok-1",
				Kind:        models.TokenKindSponsor,
				Tier:        "gold",
				AmountCents: 5000,
				ExpiresAt:   time.Now().Add(time.Hour),
			}, nil
		},
	}
	svc := newVerificationService(t, tokens)

	result, err := svc.Verify(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, VerifyStatusValid, result.Status)
	assert.Equal(t, models.TokenKindSponsor, result.Kind)
	assert.Equal(t, "gold", result.Tier)
}

func TestVerificationService_Verify_NotFoundNeverCached(t *testing.T) {
	calls := 0
	tokens := &MockClaimTokenRepository{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
			calls++
			if calls < 3 {
				return nil, models.ErrNotFound
			}
			// Issuance caught up
			return &models.ClaimToken{ID: "tok-1", Kind: models.TokenKindLink, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	svc := newVerificationService(t, tokens)

	for i := 0; i < 2; i++ {
		result, err := svc.Verify(context.Background(), "LAGGING1")
		require.NoError(t, err)
		assert.Equal(t, VerifyStatusNotFound, result.Status)
	}

	result, err := svc.Verify(context.Background(), "LAGGING1")
	require.NoError(t, err)
	assert.Equal(t, VerifyStatusValid, result.Status, "a late-arriving token must become visible")
	assert.Equal(t, 3, calls)
}

func TestVerificationService_Verify_TerminalStatesCached(t *testing.T) {
	cases := []struct {
		name  string
		token *models.ClaimToken
		want  VerifyStatus
	}{
		{
			"expired",
			&models.ClaimToken{ID: "tok-1", Kind: models.TokenKindLink, ExpiresAt: time.Now().Add(-time.Hour)},
			VerifyStatusExpired,
		},
		{
			"consumed",
			&models.ClaimToken{
				ID: "tok-2", Kind: models.TokenKindLink,
				ExpiresAt:  time.Now().Add(time.Hour),
				ConsumedAt: ptrTime(time.Now().Add(-time.Minute)),
			},
			VerifyStatusConsumed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			tokens := &MockClaimTokenRepository{
				GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
					calls++
					return tc.token, nil
				},
			}
			svc := newVerificationService(t, tokens)

			for i := 0; i < 3; i++ {
				result, err := svc.Verify(context.Background(), "DEAD"+tc.name)
				require.NoError(t, err)
				assert.Equal(t, tc.want, result.Status)
			}

			assert.Equal(t, 1, calls, "a dead token can never revive, so polls should hit the cache")
		})
	}
}

func TestVerificationService_Verify_RepositoryError(t *testing.T) {
	tokens := &MockClaimTokenRepository{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.ClaimToken, error) {
			return nil, models.ErrInternalServer
		},
	}
	svc := newVerificationService(t, tokens)

	_, err := svc.Verify(context.Background(), "ABC123")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
