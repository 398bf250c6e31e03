package repositories

import (
	"context"
	"fmt"

	"github.com/danzhq/claimgate/internal/database"
	"github.com/danzhq/claimgate/internal/models"
)

// SponsorClaimRepository handles sponsor claim records
type SponsorClaimRepository struct {
	db *database.DB
}

// NewSponsorClaimRepository creates a new SponsorClaimRepository
func NewSponsorClaimRepository(db *database.DB) *SponsorClaimRepository {
	return &SponsorClaimRepository{db: db}
}

const sponsorClaimColumns = `id, account_id, token_id, tier, amount_cents, claimed_at`

func scanSponsorClaimRow(scanner rowScanner) (*models.SponsorClaim, error) {
	var claim models.SponsorClaim

	err := scanner.Scan(
		&claim.ID, &claim.AccountID, &claim.TokenID, &claim.Tier,
		&claim.AmountCents, &claim.ClaimedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &claim, nil
}

// Create records a sponsor purchase bound to an account. A unique constraint on
// token_id backs up the claim_tokens idempotency guard.
func (r *SponsorClaimRepository) Create(ctx context.Context, claim *models.SponsorClaim) (*models.SponsorClaim, error) {
	query := `
		INSERT INTO sponsor_claims (account_id, token_id, tier, amount_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + sponsorClaimColumns

	created, err := scanSponsorClaimRow(r.db.Conn(ctx).QueryRow(ctx, query,
		claim.AccountID, claim.TokenID, claim.Tier, claim.AmountCents,
	))
	if err != nil {
		if err == models.ErrConflict {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create sponsor claim: %w", err)
	}

	return created, nil
}

// GetByAccount retrieves the most recent sponsor claim for an account
func (r *SponsorClaimRepository) GetByAccount(ctx context.Context, accountID string) (*models.SponsorClaim, error) {
	query := `
		SELECT ` + sponsorClaimColumns + `
		FROM sponsor_claims
		WHERE account_id = $1
		ORDER BY claimed_at DESC
		LIMIT 1
	`

	return scanSponsorClaimRow(r.db.Conn(ctx).QueryRow(ctx, query, accountID))
}
