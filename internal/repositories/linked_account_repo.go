package repositories

import (
	"context"
	"fmt"

	"github.com/danzhq/claimgate/internal/database"
	"github.com/danzhq/claimgate/internal/models"
	"github.com/jackc/pgx/v5"
)

// LinkedAccountRepository handles linked chat identity data access
type LinkedAccountRepository struct {
	db *database.DB
}

// NewLinkedAccountRepository creates a new LinkedAccountRepository
func NewLinkedAccountRepository(db *database.DB) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: db}
}

const linkedAccountColumns = `id, account_id, platform, platform_username, linked_at`

func scanLinkedAccountRow(scanner rowScanner) (*models.LinkedAccount, error) {
	var link models.LinkedAccount

	err := scanner.Scan(
		&link.ID, &link.AccountID, &link.Platform, &link.PlatformUsername, &link.LinkedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &link, nil
}

// Create records a new platform link. A unique constraint on (account_id, platform)
// maps duplicate links to ErrConflict.
func (r *LinkedAccountRepository) Create(ctx context.Context, link *models.LinkedAccount) (*models.LinkedAccount, error) {
	query := `
		INSERT INTO linked_accounts (account_id, platform, platform_username)
		VALUES ($1, $2, $3)
		RETURNING ` + linkedAccountColumns

	created, err := scanLinkedAccountRow(r.db.Conn(ctx).QueryRow(ctx, query,
		link.AccountID, link.Platform, link.PlatformUsername,
	))
	if err != nil {
		if err == models.ErrConflict {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create linked account: %w", err)
	}

	return created, nil
}

// GetByAccountAndPlatform retrieves a link for an account on a given platform
func (r *LinkedAccountRepository) GetByAccountAndPlatform(ctx context.Context, accountID, platform string) (*models.LinkedAccount, error) {
	query := `
		SELECT ` + linkedAccountColumns + `
		FROM linked_accounts
		WHERE account_id = $1 AND platform = $2
	`

	return scanLinkedAccountRow(r.db.Conn(ctx).QueryRow(ctx, query, accountID, platform))
}

// ListByAccount returns all platform links for an account
func (r *LinkedAccountRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.LinkedAccount, error) {
	query := `
		SELECT ` + linkedAccountColumns + `
		FROM linked_accounts
		WHERE account_id = $1
		ORDER BY linked_at
	`

	rows, err := r.db.Conn(ctx).Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked accounts: %w", err)
	}

	return scanLinkedAccountRows(rows)
}

func scanLinkedAccountRows(rows pgx.Rows) ([]*models.LinkedAccount, error) {
	defer rows.Close()

	links := make([]*models.LinkedAccount, 0)

	for rows.Next() {
		link, err := scanLinkedAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan linked account: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating linked account rows: %w", err)
	}

	return links, nil
}
