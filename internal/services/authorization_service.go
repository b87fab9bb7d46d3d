// internal/services/authorization_service.go
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
)

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// AuthorizationService answers ownership questions along the reseller hierarchy.
// Role gates live in the router; this only decides which dealers an actor may see.
type AuthorizationService struct {
	store repository.Store
}

func NewAuthorizationService(store repository.Store) *AuthorizationService {
	return &AuthorizationService{store: store}
}

// CanAccessDealer loads the dealer and checks that the actor may read their data:
// admins see everyone, dealers see themselves, stalkists see the dealers they created.
func (s *AuthorizationService) CanAccessDealer(ctx context.Context, actor Actor, dealerID uuid.UUID) (*models.User, error) {
	dealer, err := s.store.Users().GetByID(ctx, dealerID)
	if err != nil {
		return nil, notFoundOr(err, "dealer")
	}
	if dealer.Role != models.RoleDealer {
		return nil, newError(ErrNotFound, "dealer not found")
	}

	switch actor.Role {
	case models.RoleAdmin:
		return dealer, nil
	case models.RoleDealer:
		if dealer.ID == actor.ID {
			return dealer, nil
		}
	case models.RoleStalkist:
		if dealer.IsCreatedBy(actor.ID) {
			return dealer, nil
		}
	}
	return nil, newError(ErrForbidden, "you do not have access to this dealer")
}

// DealerScope returns the dealer ids visible to the actor. nil means every dealer.
func (s *AuthorizationService) DealerScope(ctx context.Context, actor Actor) ([]uuid.UUID, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return nil, nil
	case models.RoleDealer:
		return []uuid.UUID{actor.ID}, nil
	case models.RoleStalkist:
		role := models.RoleDealer
		dealers, err := s.store.Users().ListByCreator(ctx, &actor.ID, &role)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, 0, len(dealers))
		for _, d := range dealers {
			ids = append(ids, d.ID)
		}
		return ids, nil
	}
	return nil, newError(ErrForbidden, "role %s cannot view dealer requests", actor.Role)
}
