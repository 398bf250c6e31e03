package models

import (
	"time"
)

// Account is a DANZ platform account that claim tokens bind to
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Handle       string    `json:"handle"`
	PasswordHash string    `json:"-"`
	XP           int64     `json:"xp"`
	Role         string    `json:"role"`   // "user", "admin"
	Status       string    `json:"status"` // "active", "suspended", "disabled"
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LinkedAccount records a successful binding of an external chat identity to an account
type LinkedAccount struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"account_id"`
	Platform         string    `json:"platform"`
	PlatformUsername string    `json:"platform_username"`
	LinkedAt         time.Time `json:"linked_at"`
}

// SponsorClaim records a purchase token bound to an account
type SponsorClaim struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	TokenID     string    `json:"token_id"`
	Tier        string    `json:"tier"`
	AmountCents int64     `json:"amount_cents"`
	ClaimedAt   time.Time `json:"claimed_at"`
}
