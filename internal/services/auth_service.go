// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
	"github.com/javajoker/distro-backend/internal/utils"
)

type AuthService struct {
	store repository.Store
	cfg   *config.Config
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

func NewAuthService(store repository.Store, cfg *config.Config) *AuthService {
	return &AuthService{
		store: store,
		cfg:   cfg,
	}
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}

	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthenticated, "invalid email or password")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, newError(ErrUnauthenticated, "invalid email or password")
	}
	if user.Status == models.UserStatusSuspended {
		return nil, newError(ErrForbidden, "account is suspended")
	}

	if err := s.store.Users().UpdateLastLogin(ctx, user.ID); err != nil {
		logger.LogError("services", "AuthService.Login", "failed to update last login", user.ID, err)
	}

	accessToken, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}

// Authenticate resolves a bearer token to the current user, rejecting suspended accounts.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		return nil, newError(ErrUnauthenticated, "invalid or expired token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, newError(ErrUnauthenticated, "invalid or expired token")
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthenticated, "user no longer exists")
		}
		return nil, err
	}
	if user.Status == models.UserStatusSuspended {
		return nil, newError(ErrForbidden, "account is suspended")
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return user, nil
}
