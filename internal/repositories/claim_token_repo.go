package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/danzhq/claimgate/internal/database"
	"github.com/danzhq/claimgate/internal/models"
)

// ClaimTokenRepository handles claim token data access
type ClaimTokenRepository struct {
	db *database.DB
}

// NewClaimTokenRepository creates a new ClaimTokenRepository
func NewClaimTokenRepository(db *database.DB) *ClaimTokenRepository {
	return &ClaimTokenRepository{db: db}
}

const claimTokenColumns = `id, code, kind, platform, platform_username, tier, amount_cents, expires_at, consumed_at, consumed_by, created_at`

// scanClaimTokenRow handles nullable fields and populates a ClaimToken model from a database row
func scanClaimTokenRow(row rowScanner) (*models.ClaimToken, error) {
	var token models.ClaimToken
	var platform, platformUsername, tier *string
	var amountCents *int64
	var consumedAt *time.Time
	var consumedBy *string

	err := row.Scan(
		&token.ID, &token.Code, &token.Kind, &platform, &platformUsername,
		&tier, &amountCents, &token.ExpiresAt, &consumedAt, &consumedBy, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if platform != nil {
		token.Platform = *platform
	}
	if platformUsername != nil {
		token.PlatformUsername = *platformUsername
	}
	if tier != nil {
		token.Tier = *tier
	}
	if amountCents != nil {
		token.AmountCents = *amountCents
	}
	token.ConsumedAt = consumedAt
	token.ConsumedBy = consumedBy
	return &token, nil
}

// Create creates a new claim token
func (r *ClaimTokenRepository) Create(ctx context.Context, token *models.ClaimToken) (*models.ClaimToken, error) {
	query := `
		INSERT INTO claim_tokens (code, kind, platform, platform_username, tier, amount_cents, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING ` + claimTokenColumns

	created, err := scanClaimTokenRow(r.db.Conn(ctx).QueryRow(ctx, query,
		token.Code, token.Kind, token.Platform, token.PlatformUsername,
		token.Tier, token.AmountCents, token.ExpiresAt,
	))
	if err != nil {
		if err == models.ErrConflict {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create claim token: %w", err)
	}

	return created, nil
}

// GetByCode retrieves a token by its opaque code
func (r *ClaimTokenRepository) GetByCode(ctx context.Context, code string) (*models.ClaimToken, error) {
	query := `
		SELECT ` + claimTokenColumns + `
		FROM claim_tokens
		WHERE code = $1
	`

	token, err := scanClaimTokenRow(r.db.Conn(ctx).QueryRow(ctx, query, code))
	if err != nil {
		return nil, err
	}

	return token, nil
}

// Consume marks a token as consumed by the given account. The consumed_at IS NULL
// guard is the server-side idempotency boundary: a second consume of the same
// token affects zero rows and reports ErrTokenConsumed, regardless of which
// client or tab raced the first one.
func (r *ClaimTokenRepository) Consume(ctx context.Context, id, accountID string) error {
	query := `
		UPDATE claim_tokens
		SET consumed_at = NOW(), consumed_by = $2
		WHERE id = $1 AND consumed_at IS NULL AND expires_at > NOW()
	`

	result, err := r.db.Conn(ctx).Exec(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("failed to consume claim token: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish consumed from expired for the error taxonomy
		token, getErr := r.getByID(ctx, id)
		if getErr != nil {
			return models.ErrNotFound
		}
		if token.IsConsumed() {
			return models.ErrTokenConsumed
		}
		return models.ErrTokenExpired
	}

	return nil
}

func (r *ClaimTokenRepository) getByID(ctx context.Context, id string) (*models.ClaimToken, error) {
	query := `
		SELECT ` + claimTokenColumns + `
		FROM claim_tokens
		WHERE id = $1
	`

	return scanClaimTokenRow(r.db.Conn(ctx).QueryRow(ctx, query, id))
}

// CleanupExpired deletes expired tokens older than the retention threshold
func (r *ClaimTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM claim_tokens
		WHERE expires_at < NOW() - INTERVAL '30 days'
	`

	result, err := r.db.Conn(ctx).Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
