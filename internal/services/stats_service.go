// internal/services/stats_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
)

// StatsService is the read side: dealer statistics, role counts and the admin dashboard.
type StatsService struct {
	store         repository.Store
	authorization *AuthorizationService
	ledger        config.LedgerConfig
}

type StatusStats struct {
	Count   int             `json:"count"`
	Strips  int             `json:"strips"`
	Packets int             `json:"packets"`
	Value   decimal.Decimal `json:"value"`
}

type DealerStats struct {
	Dealer   *models.User                          `json:"dealer"`
	Stats    map[models.RequestStatus]*StatusStats `json:"stats"`
	Total    StatusStats                           `json:"total"`
	Requests []models.DealerRequest                `json:"requests"`
}

type DashboardStats struct {
	UsersByRole            map[models.Role]int64 `json:"users_by_role"`
	TotalUsers             int64                 `json:"total_users"`
	PendingRequests        int64                 `json:"pending_requests"`
	ApprovedRequests       int64                 `json:"approved_requests"`
	PaymentsAwaitingReview int64                 `json:"payments_awaiting_review"`
	TotalProducts          int64                 `json:"total_products"`
	TotalStockStrips       int64                 `json:"total_stock_strips"`
}

func NewStatsService(store repository.Store, authorization *AuthorizationService, ledger config.LedgerConfig) *StatsService {
	return &StatsService{
		store:         store,
		authorization: authorization,
		ledger:        ledger,
	}
}

// requestValue prices a request at the product's current packet price, or at the
// price captured when the request was created when snapshot pricing is on.
func requestValue(req *models.DealerRequest, product models.Product, useSnapshot bool) decimal.Decimal {
	if useSnapshot && !req.UnitPrice.IsZero() {
		product.PacketPrice = req.UnitPrice
	}
	return product.StripValue(req.Strips).Round(2)
}

// DealerStats aggregates a dealer's requests per status. Stalkists only see dealers they created.
func (s *StatsService) DealerStats(ctx context.Context, actor Actor, dealerID uuid.UUID) (*DealerStats, error) {
	dealer, err := s.authorization.CanAccessDealer(ctx, actor, dealerID)
	if err != nil {
		return nil, err
	}

	requests, _, err := s.store.Requests().List(ctx, repository.RequestFilter{DealerIDs: []uuid.UUID{dealerID}})
	if err != nil {
		return nil, err
	}

	stats := &DealerStats{
		Dealer: dealer,
		Stats: map[models.RequestStatus]*StatusStats{
			models.RequestStatusPending:   {Value: decimal.Zero},
			models.RequestStatusApproved:  {Value: decimal.Zero},
			models.RequestStatusCancelled: {Value: decimal.Zero},
		},
		Total:    StatusStats{Value: decimal.Zero},
		Requests: requests,
	}

	for i := range requests {
		req := &requests[i]
		bucket, ok := stats.Stats[req.Status]
		if !ok {
			continue
		}

		packets, value := 0, decimal.Zero
		if req.Product != nil {
			packets = req.Strips * req.Product.PacketsPerStrip
			value = requestValue(req, *req.Product, s.ledger.StatsUseSnapshotPrice)
		}

		for _, b := range []*StatusStats{bucket, &stats.Total} {
			b.Count++
			b.Strips += req.Strips
			b.Packets += packets
			b.Value = b.Value.Add(value)
		}
	}

	return stats, nil
}

// RoleCounts always reports all four roles.
func (s *StatsService) RoleCounts(ctx context.Context) (map[models.Role]int64, error) {
	counts, err := s.store.Users().CountByRole(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[models.Role]int64, len(models.AllRoles))
	for _, role := range models.AllRoles {
		result[role] = counts[role]
	}
	return result, nil
}

func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	roles, err := s.RoleCounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{UsersByRole: roles}
	for _, count := range roles {
		stats.TotalUsers += count
	}

	requests := s.store.Requests()
	if stats.PendingRequests, err = requests.CountByStatus(ctx, models.RequestStatusPending); err != nil {
		return nil, err
	}
	if stats.ApprovedRequests, err = requests.CountByStatus(ctx, models.RequestStatusApproved); err != nil {
		return nil, err
	}
	if stats.PaymentsAwaitingReview, err = requests.CountByPaymentStatus(ctx, models.PaymentStatusPaid); err != nil {
		return nil, err
	}

	products := s.store.Products()
	if stats.TotalProducts, err = products.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalStockStrips, err = products.TotalStock(ctx); err != nil {
		return nil, err
	}

	return stats, nil
}
