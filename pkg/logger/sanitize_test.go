package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	cases := []struct {
		name  string
		email string
		want  string
	}{
		{"typical address", "dancer@example.com", "d*****@*******.com"},
		{"single-char user", "d@example.com", "d@*******.com"},
		{"not an email", "no-at-sign", "[invalid-email]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizedEmail(tc.email))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	cases := []struct {
		name     string
		rawQuery string
		want     bool
	}{
		{"claim code", "code=ABCD2345", true},
		{"claim token", "claim_token=xyz", true},
		{"password", "password=hunter2", true},
		{"harmless paging", "page=2&limit=50", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeQueryString(tc.rawQuery), "query: %s", tc.rawQuery)
		})
	}
}

func TestRedactedAttr(t *testing.T) {
	prod := RedactedAttr("code", "ABCD2345", "production")
	assert.Equal(t, "[REDACTED]", prod.Value.String())

	dev := RedactedAttr("code", "ABCD2345", "development")
	assert.Equal(t, "ABCD2345", dev.Value.String())
}
