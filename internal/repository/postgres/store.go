// internal/repository/postgres/store.go
package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/javajoker/distro-backend/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store is the gorm-backed repository set. Inside Transaction every repository runs on the tx handle.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Products() repository.ProductRepository {
	return &productRepo{db: s.db}
}

func (s *Store) Requests() repository.DealerRequestRepository {
	return &requestRepo{db: s.db}
}

func (s *Store) Allocations() repository.StockAllocationRepository {
	return &allocationRepo{db: s.db}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepo{db: s.db}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{db: s.db}
}

func (s *Store) AuditLogs() repository.AuditLogRepository {
	return &auditLogRepo{db: s.db}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
