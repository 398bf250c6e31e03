package models

import (
	"time"
)

// TokenKind distinguishes the two claim flows a token can belong to
type TokenKind string

const (
	// TokenKindLink is a chat-platform account linking code issued by a bot backend
	TokenKindLink TokenKind = "link"
	// TokenKindSponsor is a sponsor purchase claim token issued by a payment webhook
	TokenKindSponsor TokenKind = "sponsor"
)

// Supported chat platforms for link tokens
const (
	PlatformTelegram  = "telegram"
	PlatformDiscord   = "discord"
	PlatformFarcaster = "farcaster"
	PlatformOpenClaw  = "openclaw"
)

// ClaimToken represents an opaque, single-use credential issued out-of-band.
// Link tokens carry the source platform and external username; sponsor tokens
// carry the purchase tier and amount. A token is consumed at most once, by the
// claim mutation, which binds it to an account.
type ClaimToken struct {
	ID               string     `json:"id"`
	Code             string     `json:"-"` // Never expose the raw code
	Kind             TokenKind  `json:"kind"`
	Platform         string     `json:"platform,omitempty"`
	PlatformUsername string     `json:"platform_username,omitempty"`
	Tier             string     `json:"tier,omitempty"`
	AmountCents      int64      `json:"amount_cents,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	ConsumedAt       *time.Time `json:"consumed_at,omitempty"`
	ConsumedBy       *string    `json:"consumed_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsExpired checks if the token has expired
func (t *ClaimToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsConsumed checks if the token has already been claimed
func (t *ClaimToken) IsConsumed() bool {
	return t.ConsumedAt != nil
}

// IsValid checks if the token can still be claimed (not expired and not consumed)
func (t *ClaimToken) IsValid() bool {
	return !t.IsExpired() && !t.IsConsumed()
}
