// internal/repository/memory/repos.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
)

type productRepo struct{ s *Store }

func (r *productRepo) Create(_ context.Context, product *models.Product) error {
	return r.s.with(func(st *state) error {
		st.stamp(&product.BaseModel)
		st.products[product.ID] = *product
		return nil
	})
}

func (r *productRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	var out *models.Product
	err := r.s.with(func(st *state) error {
		out = productPtr(st, id)
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *productRepo) List(_ context.Context, search string) ([]models.Product, error) {
	term := strings.ToLower(search)
	products := []models.Product{}
	err := r.s.with(func(st *state) error {
		for _, p := range st.products {
			if term != "" && !strings.Contains(strings.ToLower(p.Title), term) &&
				!strings.Contains(strings.ToLower(p.Description), term) {
				continue
			}
			products = append(products, p)
		}
		return nil
	})
	sort.Slice(products, func(i, j int) bool {
		if products[i].Title != products[j].Title {
			return products[i].Title < products[j].Title
		}
		return products[i].ID.String() < products[j].ID.String()
	})
	return products, err
}

func (r *productRepo) Update(_ context.Context, product *models.Product) error {
	return r.s.with(func(st *state) error {
		current, ok := st.products[product.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Title = product.Title
		current.Description = product.Description
		current.PacketPrice = product.PacketPrice
		current.PacketsPerStrip = product.PacketsPerStrip
		current.Images = product.Images
		current.UpdatedAt = st.now()
		st.products[product.ID] = current
		return nil
	})
}

func (r *productRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.s.with(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func (r *productRepo) DecrementStock(_ context.Context, id uuid.UUID, strips int) (bool, error) {
	matched := false
	err := r.s.with(func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.Stock < strips {
			return nil
		}
		p.Stock -= strips
		p.UpdatedAt = st.now()
		st.products[id] = p
		matched = true
		return nil
	})
	return matched, err
}

func (r *productRepo) SetStock(_ context.Context, id uuid.UUID, stock int) error {
	return r.s.with(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		if stock < 0 {
			return fmt.Errorf("set stock: negative stock %d", stock)
		}
		p.Stock = stock
		p.UpdatedAt = st.now()
		st.products[id] = p
		return nil
	})
}

func (r *productRepo) Count(_ context.Context) (int64, error) {
	var count int64
	err := r.s.with(func(st *state) error {
		count = int64(len(st.products))
		return nil
	})
	return count, err
}

func (r *productRepo) TotalStock(_ context.Context) (int64, error) {
	var total int64
	err := r.s.with(func(st *state) error {
		for _, p := range st.products {
			total += int64(p.Stock)
		}
		return nil
	})
	return total, err
}

type requestRepo struct{ s *Store }

func populate(st *state, req models.DealerRequest) models.DealerRequest {
	req.Dealer = userPtr(st, req.DealerID)
	req.Product = productPtr(st, req.ProductID)
	return req
}

func strip(req models.DealerRequest) models.DealerRequest {
	req.Dealer = nil
	req.Product = nil
	return req
}

func (r *requestRepo) Create(_ context.Context, req *models.DealerRequest) error {
	return r.s.with(func(st *state) error {
		st.stamp(&req.BaseModel)
		st.requests[req.ID] = strip(*req)
		return nil
	})
}

func (r *requestRepo) GetByID(_ context.Context, id uuid.UUID) (*models.DealerRequest, error) {
	var out models.DealerRequest
	err := r.s.with(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = populate(st, req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *requestRepo) GetForUpdate(_ context.Context, id uuid.UUID) (*models.DealerRequest, error) {
	var out models.DealerRequest
	err := r.s.with(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *requestRepo) Save(_ context.Context, req *models.DealerRequest) error {
	return r.s.with(func(st *state) error {
		if _, ok := st.requests[req.ID]; !ok {
			return repository.ErrNotFound
		}
		req.UpdatedAt = st.now()
		st.requests[req.ID] = strip(*req)
		return nil
	})
}

func (r *requestRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, from models.PaymentStatus, updates map[string]interface{}) (bool, error) {
	matched := false
	err := r.s.with(func(st *state) error {
		req, ok := st.requests[id]
		if !ok || req.PaymentStatus != from {
			return nil
		}
		for column, value := range updates {
			if err := applyPaymentColumn(&req, column, value); err != nil {
				return err
			}
		}
		req.UpdatedAt = st.now()
		st.requests[id] = req
		matched = true
		return nil
	})
	return matched, err
}

func applyPaymentColumn(req *models.DealerRequest, column string, value interface{}) error {
	switch column {
	case "payment_status":
		req.PaymentStatus = value.(models.PaymentStatus)
	case "receipt_image":
		v := value.(string)
		req.ReceiptImage = &v
	case "payment_reference":
		v := value.(string)
		req.PaymentReference = &v
	case "payment_verified_by":
		v := value.(uuid.UUID)
		req.PaymentVerifiedBy = &v
	case "payment_verified_at":
		v := value.(time.Time)
		req.PaymentVerifiedAt = &v
	case "payment_notes":
		req.PaymentNotes = value.(string)
	default:
		return fmt.Errorf("update payment status: unknown column %q", column)
	}
	return nil
}

func (r *requestRepo) List(_ context.Context, filter repository.RequestFilter) ([]models.DealerRequest, int64, error) {
	var dealers map[uuid.UUID]bool
	if filter.DealerIDs != nil {
		dealers = make(map[uuid.UUID]bool, len(filter.DealerIDs))
		for _, id := range filter.DealerIDs {
			dealers[id] = true
		}
	}

	requests := []models.DealerRequest{}
	err := r.s.with(func(st *state) error {
		for _, req := range st.requests {
			if dealers != nil && !dealers[req.DealerID] {
				continue
			}
			if filter.Status != nil && req.Status != *filter.Status {
				continue
			}
			if filter.PaymentStatus != nil && req.PaymentStatus != *filter.PaymentStatus {
				continue
			}
			requests = append(requests, populate(st, req))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})

	total := int64(len(requests))
	if filter.Limit > 0 {
		start := filter.Offset
		if start > len(requests) {
			start = len(requests)
		}
		end := start + filter.Limit
		if end > len(requests) {
			end = len(requests)
		}
		requests = requests[start:end]
	}
	return requests, total, nil
}

func (r *requestRepo) ListApprovedByDealer(_ context.Context, dealerID uuid.UUID) ([]models.DealerRequest, error) {
	requests := []models.DealerRequest{}
	err := r.s.with(func(st *state) error {
		for _, req := range st.requests {
			if req.DealerID == dealerID && req.Status == models.RequestStatusApproved {
				req.Product = productPtr(st, req.ProductID)
				requests = append(requests, req)
			}
		}
		return nil
	})
	sort.Slice(requests, func(i, j int) bool {
		pi, pj := requests[i].ProcessedAt, requests[j].ProcessedAt
		if pi != nil && pj != nil && !pi.Equal(*pj) {
			return pi.After(*pj)
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, err
}

func (r *requestRepo) SumApprovedStrips(_ context.Context, dealerID, productID uuid.UUID) (int, error) {
	total := 0
	err := r.s.with(func(st *state) error {
		for _, req := range st.requests {
			if req.DealerID == dealerID && req.ProductID == productID && req.Status == models.RequestStatusApproved {
				total += req.Strips
			}
		}
		return nil
	})
	return total, err
}

func (r *requestRepo) count(match func(models.DealerRequest) bool) (int64, error) {
	var count int64
	err := r.s.with(func(st *state) error {
		for _, req := range st.requests {
			if match(req) {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *requestRepo) CountByProduct(_ context.Context, productID uuid.UUID) (int64, error) {
	return r.count(func(req models.DealerRequest) bool { return req.ProductID == productID })
}

func (r *requestRepo) CountByStatus(_ context.Context, status models.RequestStatus) (int64, error) {
	return r.count(func(req models.DealerRequest) bool { return req.Status == status })
}

func (r *requestRepo) CountByPaymentStatus(_ context.Context, status models.PaymentStatus) (int64, error) {
	return r.count(func(req models.DealerRequest) bool { return req.PaymentStatus == status })
}

type allocationRepo struct{ s *Store }

func (r *allocationRepo) Create(_ context.Context, allocation *models.StockAllocation) error {
	return r.s.with(func(st *state) error {
		st.stamp(&allocation.BaseModel)
		stored := *allocation
		stored.Dealer, stored.Salesman, stored.Product = nil, nil, nil
		st.allocations = append(st.allocations, stored)
		return nil
	})
}

func (r *allocationRepo) SumAllocatedStrips(_ context.Context, dealerID, productID uuid.UUID) (int, error) {
	total := 0
	err := r.s.with(func(st *state) error {
		for _, a := range st.allocations {
			if a.DealerID == dealerID && a.ProductID == productID {
				total += a.Strips
			}
		}
		return nil
	})
	return total, err
}

func (r *allocationRepo) list(match func(models.StockAllocation) bool) ([]models.StockAllocation, error) {
	allocations := []models.StockAllocation{}
	err := r.s.with(func(st *state) error {
		// newest first: walk the append-only slice backwards
		for i := len(st.allocations) - 1; i >= 0; i-- {
			a := st.allocations[i]
			if !match(a) {
				continue
			}
			a.Dealer = userPtr(st, a.DealerID)
			a.Salesman = userPtr(st, a.SalesmanID)
			a.Product = productPtr(st, a.ProductID)
			allocations = append(allocations, a)
		}
		return nil
	})
	return allocations, err
}

func (r *allocationRepo) ListByDealer(_ context.Context, dealerID uuid.UUID) ([]models.StockAllocation, error) {
	return r.list(func(a models.StockAllocation) bool { return a.DealerID == dealerID })
}

func (r *allocationRepo) ListBySalesman(_ context.Context, salesmanID uuid.UUID) ([]models.StockAllocation, error) {
	return r.list(func(a models.StockAllocation) bool { return a.SalesmanID == salesmanID })
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	return r.s.with(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return fmt.Errorf("create user: duplicate email %s", user.Email)
			}
		}
		st.stamp(&user.BaseModel)
		stored := *user
		stored.Creator = nil
		st.users[user.ID] = stored
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := r.s.with(func(st *state) error {
		out = userPtr(st, id)
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.s.with(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				found := u
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) LockForUpdate(_ context.Context, id uuid.UUID) error {
	return r.s.with(func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *userRepo) ListByCreator(_ context.Context, creatorID *uuid.UUID, role *models.Role) ([]models.User, error) {
	users := []models.User{}
	err := r.s.with(func(st *state) error {
		for _, u := range st.users {
			if creatorID != nil && !u.IsCreatedBy(*creatorID) {
				continue
			}
			if role != nil && u.Role != *role {
				continue
			}
			users = append(users, u)
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, err
}

func (r *userRepo) CountByRole(_ context.Context) (map[models.Role]int64, error) {
	counts := make(map[models.Role]int64)
	err := r.s.with(func(st *state) error {
		for _, u := range st.users {
			counts[u.Role]++
		}
		return nil
	})
	return counts, err
}

func (r *userRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	return r.s.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		now := st.now()
		u.LastLoginAt = &now
		st.users[id] = u
		return nil
	})
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, n *models.Notification) error {
	return r.s.with(func(st *state) error {
		st.stamp(&n.BaseModel)
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func visibleTo(n models.Notification, userID uuid.UUID, includeBroadcast bool) bool {
	if n.UserID == nil {
		return includeBroadcast
	}
	return *n.UserID == userID
}

func (r *notificationRepo) ListForUser(_ context.Context, userID uuid.UUID, includeBroadcast bool, limit int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := r.s.with(func(st *state) error {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			if limit > 0 && len(notifications) == limit {
				break
			}
			if visibleTo(st.notifications[i], userID, includeBroadcast) {
				notifications = append(notifications, st.notifications[i])
			}
		}
		return nil
	})
	return notifications, err
}

func (r *notificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID, includeBroadcast bool) (bool, error) {
	matched := false
	err := r.s.with(func(st *state) error {
		for i := range st.notifications {
			n := &st.notifications[i]
			if n.ID == id && visibleTo(*n, userID, includeBroadcast) {
				now := st.now()
				n.ReadAt = &now
				matched = true
				return nil
			}
		}
		return nil
	})
	return matched, err
}

type auditLogRepo struct{ s *Store }

func (r *auditLogRepo) Create(_ context.Context, entry *models.AuditLog) error {
	return r.s.with(func(st *state) error {
		st.stamp(&entry.BaseModel)
		st.auditLogs = append(st.auditLogs, *entry)
		return nil
	})
}
