package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the JWT claims carried by access and refresh tokens
type TokenClaims struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	Handle    string `json:"handle,omitempty"`
	jwt.RegisteredClaims
}
