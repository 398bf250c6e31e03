package repositories

import (
	"context"
	"fmt"

	"github.com/danzhq/claimgate/internal/database"
	"github.com/danzhq/claimgate/internal/models"
)

// AccountRepository handles account data access
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...any) error
}

const accountColumns = `id, email, handle, password_hash, xp, role, status, created_at, updated_at`

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.Email, &account.Handle, &account.PasswordHash,
		&account.XP, &account.Role, &account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccountRow(r.db.Conn(ctx).QueryRow(ctx, query, id))
}

// GetByEmail retrieves an account by email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	return scanAccountRow(r.db.Conn(ctx).QueryRow(ctx, query, email))
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email, handle, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.db.Conn(ctx).QueryRow(ctx, query,
		account.Email, account.Handle, account.PasswordHash, account.Role, account.Status,
	))
	if err != nil {
		if err == models.ErrConflict {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return created, nil
}

// AddXP credits XP to an account and returns the new balance
func (r *AccountRepository) AddXP(ctx context.Context, id string, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET xp = xp + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING xp
	`

	var balance int64
	if err := r.db.Conn(ctx).QueryRow(ctx, query, id, amount).Scan(&balance); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return balance, nil
}
