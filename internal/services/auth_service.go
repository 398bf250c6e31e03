package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danzhq/claimgate/internal/auth"
	"github.com/danzhq/claimgate/internal/models"
	pkgauth "github.com/danzhq/claimgate/pkg/auth"
	pkglogger "github.com/danzhq/claimgate/pkg/logger"
)

// AuthResponse is returned on successful login or refresh
type AuthResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Account      *models.Account `json:"account"`
}

// AuthService handles login and token refresh
type AuthService struct {
	accounts     AccountRepository
	tokenManager *auth.TokenManager
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	accounts AccountRepository,
	tokenManager *auth.TokenManager,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		accounts:     accounts,
		tokenManager: tokenManager,
		logger:       logger,
		auditLogger:  auditLogger,
	}
}

// Login authenticates an account by email and password and issues tokens
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn a hash comparison so missing accounts cost the same as wrong passwords
			pkgauth.CompareDummy(password)
			s.auditFailure(email, ipAddress, "account_not_found")
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !pkgauth.CheckPassword(password, account.PasswordHash) {
		s.auditFailure(email, ipAddress, "invalid_password")
		return nil, models.ErrUnauthorized
	}

	switch account.Status {
	case "disabled":
		return nil, models.ErrAccountDisabled
	case "suspended":
		return nil, models.ErrAccountSuspended
	}

	resp, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login",
		AccountID: account.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return resp, nil
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.tokenManager.ValidateToken(refreshToken)
	if err != nil || claims.Type != "refresh" {
		return nil, models.ErrUnauthorized
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up account for refresh", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.Status != "active" {
		return nil, models.ErrUnauthorized
	}

	return s.issueTokens(account)
}

func (s *AuthService) issueTokens(account *models.Account) (*AuthResponse, error) {
	accessToken, err := s.tokenManager.GenerateAccessToken(account.ID, account.Email, account.Handle)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tokenManager.GenerateRefreshToken(account.ID, account.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      account,
	}, nil
}

func (s *AuthService) auditFailure(email, ipAddress, reason string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login",
		IPAddress:     ipAddress,
		Success:       false,
		FailureReason: reason,
		Metadata:      map[string]string{"email": pkglogger.SanitizedEmail(email)},
	})
}
