// internal/repository/memory/store.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type state struct {
	products      map[uuid.UUID]models.Product
	requests      map[uuid.UUID]models.DealerRequest
	allocations   []models.StockAllocation
	users         map[uuid.UUID]models.User
	notifications []models.Notification
	auditLogs     []models.AuditLog
	lastStamp     time.Time
}

func (st *state) clone() *state {
	c := &state{
		products:      make(map[uuid.UUID]models.Product, len(st.products)),
		requests:      make(map[uuid.UUID]models.DealerRequest, len(st.requests)),
		allocations:   append([]models.StockAllocation(nil), st.allocations...),
		users:         make(map[uuid.UUID]models.User, len(st.users)),
		notifications: append([]models.Notification(nil), st.notifications...),
		auditLogs:     append([]models.AuditLog(nil), st.auditLogs...),
		lastStamp:     st.lastStamp,
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.requests {
		c.requests[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	return c
}

// now returns strictly increasing timestamps so newest-first ordering is total.
func (st *state) now() time.Time {
	t := time.Now()
	if !t.After(st.lastStamp) {
		t = st.lastStamp.Add(time.Microsecond)
	}
	st.lastStamp = t
	return t
}

func (st *state) stamp(base *models.BaseModel) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	now := st.now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

type shared struct {
	mu sync.Mutex
	st *state
}

// Store keeps everything in process memory. A single mutex serialises every call and
// every transaction, which gives the same isolation the row locks give in postgres.
type Store struct {
	sh   *shared
	inTx bool
}

func NewStore() *Store {
	return &Store{sh: &shared{st: &state{
		products: make(map[uuid.UUID]models.Product),
		requests: make(map[uuid.UUID]models.DealerRequest),
		users:    make(map[uuid.UUID]models.User),
	}}}
}

// with runs fn under the store lock unless the caller already holds it through Transaction.
func (s *Store) with(fn func(st *state) error) error {
	if s.inTx {
		return fn(s.sh.st)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()
	return fn(s.sh.st)
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.sh.st.clone()
	if err := fn(&Store{sh: s.sh, inTx: true}); err != nil {
		s.sh.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Products() repository.ProductRepository {
	return &productRepo{s: s}
}

func (s *Store) Requests() repository.DealerRequestRepository {
	return &requestRepo{s: s}
}

func (s *Store) Allocations() repository.StockAllocationRepository {
	return &allocationRepo{s: s}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepo{s: s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{s: s}
}

func (s *Store) AuditLogs() repository.AuditLogRepository {
	return &auditLogRepo{s: s}
}

func userPtr(st *state, id uuid.UUID) *models.User {
	if u, ok := st.users[id]; ok {
		return &u
	}
	return nil
}

func productPtr(st *state, id uuid.UUID) *models.Product {
	if p, ok := st.products[id]; ok {
		return &p
	}
	return nil
}
