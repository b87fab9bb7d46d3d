package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/lock"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type fakeStorage struct {
	saved   int
	deleted []string
	// afterSave runs once the receipt is stored, before the request is updated.
	afterSave func()
}

func (f *fakeStorage) SaveReceipt(_ context.Context, requestID uuid.UUID, file ReceiptFile) (string, error) {
	if _, err := io.ReadAll(file.Content); err != nil {
		return "", err
	}
	f.saved++
	if f.afterSave != nil {
		f.afterSave()
	}
	return fmt.Sprintf("https://files.test/receipts/%s/%d%s", requestID, f.saved, ".png"), nil
}

func (f *fakeStorage) DeleteReceipt(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeProvider struct {
	intents map[string]*PaymentIntent
	next    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: make(map[string]*PaymentIntent)}
}

func (f *fakeProvider) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	f.next++
	intent := &PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", f.next),
		ClientSecret: fmt.Sprintf("pi_%d_secret", f.next),
		Status:       "requires_payment_method",
		Amount:       amount,
		Currency:     currency,
		Metadata:     metadata,
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakeProvider) GetIntent(_ context.Context, intentID string) (*PaymentIntent, error) {
	intent, ok := f.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", intentID)
	}
	return intent, nil
}

// harness wires every service on a fresh in-memory store.
type harness struct {
	store         *memory.Store
	publisher     *recordingPublisher
	storage       *fakeStorage
	provider      *fakeProvider
	cfg           *config.Config
	inventory     *InventoryService
	requests      *DealerRequestService
	payments      *PaymentService
	allocations   *AllocationService
	stats         *StatsService
	users         *UserService
	auth          *AuthService
	notifications *NotificationService
}

func newHarness(ledger config.LedgerConfig) *harness {
	h := &harness{
		store:     memory.NewStore(),
		publisher: &recordingPublisher{},
		storage:   &fakeStorage{},
		provider:  newFakeProvider(),
		cfg: &config.Config{
			JWT:     config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1},
			Payment: config.PaymentConfig{Currency: "inr"},
			Ledger:  ledger,
		},
	}

	authorization := NewAuthorizationService(h.store)
	h.notifications = NewNotificationService(h.store)
	h.inventory = NewInventoryService(h.store, h.publisher)
	h.requests = NewDealerRequestService(h.store, h.inventory, authorization, h.notifications, h.publisher, ledger)
	h.payments = NewPaymentService(h.store, h.storage, h.provider, h.notifications, h.publisher, h.cfg)
	h.allocations = NewAllocationService(h.store, lock.NewLocal(), h.notifications, h.publisher, ledger)
	h.stats = NewStatsService(h.store, authorization, ledger)
	h.users = NewUserService(h.store)
	h.auth = NewAuthService(h.store, h.cfg)
	return h
}

func (h *harness) user(t *testing.T, role models.Role, creator *models.User) *models.User {
	t.Helper()
	u := &models.User{
		Name:         string(role) + " user",
		Email:        fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		PasswordHash: "x",
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if creator != nil {
		u.CreatedBy = &creator.ID
	}
	require.NoError(t, h.store.Users().Create(context.Background(), u))
	return u
}

func (h *harness) product(t *testing.T, title string, stock, packetsPerStrip int, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:           title,
		PacketPrice:     decimal.RequireFromString(price),
		PacketsPerStrip: packetsPerStrip,
		Stock:           stock,
		CreatedBy:       uuid.New(),
	}
	require.NoError(t, h.store.Products().Create(context.Background(), p))
	return p
}

func (h *harness) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	p, err := h.store.Products().GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

// approved creates and approves a request in one go.
func (h *harness) approved(t *testing.T, dealer *models.User, product *models.Product, strips int, admin *models.User) *models.DealerRequest {
	t.Helper()
	ctx := context.Background()
	req, err := h.requests.CreateRequest(ctx, dealer.ID, &CreateDealerRequestRequest{ProductID: product.ID, Strips: strips})
	require.NoError(t, err)
	req, err = h.requests.ApproveRequest(ctx, req.ID, admin.ID, &ProcessRequestRequest{})
	require.NoError(t, err)
	return req
}

func actorOf(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
