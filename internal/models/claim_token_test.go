package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaimToken_IsExpired(t *testing.T) {
	live := &ClaimToken{ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, live.IsExpired())

	dead := &ClaimToken{ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, dead.IsExpired())
}

func TestClaimToken_IsConsumed(t *testing.T) {
	fresh := &ClaimToken{ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, fresh.IsConsumed())

	now := time.Now()
	used := &ClaimToken{ExpiresAt: time.Now().Add(time.Hour), ConsumedAt: &now}
	assert.True(t, used.IsConsumed())
}

func TestClaimToken_IsValid(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name  string
		token ClaimToken
		want  bool
	}{
		{"live and unused", ClaimToken{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", ClaimToken{ExpiresAt: now.Add(-time.Hour)}, false},
		{"consumed", ClaimToken{ExpiresAt: now.Add(time.Hour), ConsumedAt: &now}, false},
		{"consumed and expired", ClaimToken{ExpiresAt: now.Add(-time.Hour), ConsumedAt: &now}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.token.IsValid())
		})
	}
}
