// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
	"github.com/javajoker/distro-backend/internal/utils"
)

// UserService populates the reseller hierarchy. Every user is created by the level above.
type UserService struct {
	store repository.Store
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,role"`
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) CreateUser(ctx context.Context, creator Actor, req *CreateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		return nil, newError(ErrValidation, "unknown role %q", req.Role)
	}
	if !creator.Role.CanCreate(role) {
		return nil, newError(ErrForbidden, "a %s cannot create a %s", creator.Role, role)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, newError(ErrConflict, "user with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	user := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Phone:     req.Phone,
		Role:      role,
		Status:    models.UserStatusActive,
		CreatedBy: &creator.ID,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Get().WithFields(logrus.Fields{
		"user_id":    user.ID,
		"role":       user.Role,
		"created_by": creator.ID,
	}).Info("user created")

	return user, nil
}

// ListUsers returns the users the actor created; admins see everyone.
func (s *UserService) ListUsers(ctx context.Context, actor Actor, role *models.Role) ([]models.User, error) {
	if actor.IsAdmin() {
		return s.store.Users().ListByCreator(ctx, nil, role)
	}
	return s.store.Users().ListByCreator(ctx, &actor.ID, role)
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return user, nil
}

// SeedAdmin creates the first admin when no user with that email exists yet.
func (s *UserService) SeedAdmin(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, nil
	}

	existing, err := s.store.Users().GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	admin := &models.User{
		Name:   "Administrator",
		Email:  strings.ToLower(email),
		Role:   models.RoleAdmin,
		Status: models.UserStatusActive,
	}
	if err := admin.SetPassword(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	logger.Get().WithField("email", admin.Email).Info("seeded admin user")
	return admin, nil
}
