package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/models"
)

type DealerRequestTestSuite struct {
	suite.Suite
	h        *harness
	ctx      context.Context
	admin    *models.User
	stalkist *models.User
	dealer   *models.User
	other    *models.User
	product  *models.Product
}

func (suite *DealerRequestTestSuite) SetupTest() {
	suite.h = newHarness(config.LedgerConfig{})
	suite.ctx = context.Background()

	t := suite.T()
	suite.admin = suite.h.user(t, models.RoleAdmin, nil)
	suite.stalkist = suite.h.user(t, models.RoleStalkist, suite.admin)
	suite.dealer = suite.h.user(t, models.RoleDealer, suite.stalkist)
	suite.other = suite.h.user(t, models.RoleDealer, suite.admin)
	suite.product = suite.h.product(t, "Mint Strips", 100, 10, "5.00")
}

func (suite *DealerRequestTestSuite) create(dealer *models.User, strips int) *models.DealerRequest {
	req, err := suite.h.requests.CreateRequest(suite.ctx, dealer.ID, &CreateDealerRequestRequest{
		ProductID: suite.product.ID,
		Strips:    strips,
	})
	suite.Require().NoError(err)
	return req
}

func (suite *DealerRequestTestSuite) TestCreateAndApprove() {
	req := suite.create(suite.dealer, 20)

	assert.Equal(suite.T(), models.RequestStatusPending, req.Status)
	assert.Equal(suite.T(), models.PaymentStatusPending, req.PaymentStatus)
	suite.Require().NotNil(req.Product)
	suite.Require().NotNil(req.Dealer)
	assert.Equal(suite.T(), suite.dealer.ID, req.Dealer.ID)
	assert.True(suite.T(), req.UnitPrice.Equal(suite.product.PacketPrice))

	approved, err := suite.h.requests.ApproveRequest(suite.ctx, req.ID, suite.admin.ID, &ProcessRequestRequest{Notes: "ok"})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.RequestStatusApproved, approved.Status)
	suite.Require().NotNil(approved.ProcessedBy)
	assert.Equal(suite.T(), suite.admin.ID, *approved.ProcessedBy)
	assert.NotNil(suite.T(), approved.ProcessedAt)
	assert.Equal(suite.T(), "ok", approved.Notes)
	assert.Equal(suite.T(), 80, suite.h.stock(suite.T(), suite.product.ID))
	assert.Equal(suite.T(), "1000.00", requestValue(approved, *approved.Product, false).StringFixed(2))

	assert.Contains(suite.T(), suite.h.publisher.types(), events.TypeRequestApproved)
}

func (suite *DealerRequestTestSuite) TestCreateRejectsMoreThanStock() {
	suite.Require().NoError(suite.h.store.Products().SetStock(suite.ctx, suite.product.ID, 15))

	_, err := suite.h.requests.CreateRequest(suite.ctx, suite.dealer.ID, &CreateDealerRequestRequest{
		ProductID: suite.product.ID,
		Strips:    20,
	})

	var stockErr *InsufficientStockError
	suite.Require().True(errors.As(err, &stockErr))
	assert.Equal(suite.T(), 15, stockErr.Available)
	assert.Equal(suite.T(), 20, stockErr.Requested)
}

func (suite *DealerRequestTestSuite) TestCreateValidation() {
	_, err := suite.h.requests.CreateRequest(suite.ctx, suite.dealer.ID, &CreateDealerRequestRequest{
		ProductID: suite.product.ID,
		Strips:    0,
	})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.h.requests.CreateRequest(suite.ctx, suite.dealer.ID, &CreateDealerRequestRequest{
		ProductID: suite.product.ID,
		Strips:    -3,
	})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.h.requests.CreateRequest(suite.ctx, suite.dealer.ID, &CreateDealerRequestRequest{
		ProductID: uuid.New(),
		Strips:    1,
	})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DealerRequestTestSuite) TestApproveShortfallLeavesRequestPending() {
	suite.Require().NoError(suite.h.store.Products().SetStock(suite.ctx, suite.product.ID, 10))
	first := suite.create(suite.dealer, 6)
	second := suite.create(suite.other, 6)

	_, err := suite.h.requests.ApproveRequest(suite.ctx, first.ID, suite.admin.ID, &ProcessRequestRequest{})
	suite.Require().NoError(err)

	_, err = suite.h.requests.ApproveRequest(suite.ctx, second.ID, suite.admin.ID, &ProcessRequestRequest{})
	var stockErr *InsufficientStockError
	suite.Require().True(errors.As(err, &stockErr))
	assert.Equal(suite.T(), 4, stockErr.Available)
	assert.Equal(suite.T(), 6, stockErr.Requested)

	reloaded, err := suite.h.store.Requests().GetByID(suite.ctx, second.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.RequestStatusPending, reloaded.Status)
	assert.Nil(suite.T(), reloaded.ProcessedBy)
	assert.Equal(suite.T(), 4, suite.h.stock(suite.T(), suite.product.ID))
}

func (suite *DealerRequestTestSuite) TestConcurrentApprovalsNeverOversell() {
	suite.Require().NoError(suite.h.store.Products().SetStock(suite.ctx, suite.product.ID, 10))
	requests := []*models.DealerRequest{suite.create(suite.dealer, 6), suite.create(suite.other, 6)}

	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	for i, req := range requests {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = suite.h.requests.ApproveRequest(suite.ctx, id, suite.admin.ID, &ProcessRequestRequest{})
		}(i, req.ID)
	}
	wg.Wait()

	succeeded, short := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			short++
		default:
			suite.T().Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(suite.T(), 1, succeeded)
	assert.Equal(suite.T(), 1, short)
	assert.Equal(suite.T(), 4, suite.h.stock(suite.T(), suite.product.ID))
}

func (suite *DealerRequestTestSuite) TestTerminalStatesRejectFurtherTransitions() {
	approved := suite.create(suite.dealer, 10)
	_, err := suite.h.requests.ApproveRequest(suite.ctx, approved.ID, suite.admin.ID, &ProcessRequestRequest{})
	suite.Require().NoError(err)

	_, err = suite.h.requests.ApproveRequest(suite.ctx, approved.ID, suite.admin.ID, &ProcessRequestRequest{})
	assert.ErrorIs(suite.T(), err, ErrInvalidState)
	assert.EqualError(suite.T(), err, "request already approved")

	_, err = suite.h.requests.CancelRequest(suite.ctx, approved.ID, actorOf(suite.admin), &ProcessRequestRequest{})
	assert.ErrorIs(suite.T(), err, ErrInvalidState)
	assert.Equal(suite.T(), 90, suite.h.stock(suite.T(), suite.product.ID))

	cancelled := suite.create(suite.dealer, 10)
	_, err = suite.h.requests.CancelRequest(suite.ctx, cancelled.ID, actorOf(suite.admin), &ProcessRequestRequest{Notes: "duplicate"})
	suite.Require().NoError(err)

	_, err = suite.h.requests.ApproveRequest(suite.ctx, cancelled.ID, suite.admin.ID, &ProcessRequestRequest{})
	assert.EqualError(suite.T(), err, "request already cancelled")
	assert.Equal(suite.T(), 90, suite.h.stock(suite.T(), suite.product.ID))
}

func (suite *DealerRequestTestSuite) TestCancelOwnership() {
	req := suite.create(suite.dealer, 5)

	_, err := suite.h.requests.CancelRequest(suite.ctx, req.ID, actorOf(suite.other), &ProcessRequestRequest{})
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	salesman := suite.h.user(suite.T(), models.RoleSalesman, suite.dealer)
	_, err = suite.h.requests.CancelRequest(suite.ctx, req.ID, actorOf(salesman), &ProcessRequestRequest{})
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	cancelled, err := suite.h.requests.CancelRequest(suite.ctx, req.ID, actorOf(suite.dealer), &ProcessRequestRequest{})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.RequestStatusCancelled, cancelled.Status)
	assert.Equal(suite.T(), 100, suite.h.stock(suite.T(), suite.product.ID))
}

func (suite *DealerRequestTestSuite) TestGetRequestAccess() {
	req := suite.create(suite.dealer, 5)

	_, err := suite.h.requests.GetRequest(suite.ctx, req.ID, actorOf(suite.other))
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	for _, actor := range []*models.User{suite.dealer, suite.admin, suite.stalkist} {
		got, err := suite.h.requests.GetRequest(suite.ctx, req.ID, actorOf(actor))
		suite.Require().NoError(err)
		assert.Equal(suite.T(), req.ID, got.ID)
	}

	outsider := suite.h.user(suite.T(), models.RoleStalkist, suite.admin)
	_, err = suite.h.requests.GetRequest(suite.ctx, req.ID, actorOf(outsider))
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	_, err = suite.h.requests.GetRequest(suite.ctx, uuid.New(), actorOf(suite.admin))
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DealerRequestTestSuite) TestListRequestsIsScopedAndNewestFirst() {
	first := suite.create(suite.dealer, 1)
	second := suite.create(suite.dealer, 2)
	suite.create(suite.other, 3)

	own, total, err := suite.h.requests.ListRequests(suite.ctx, actorOf(suite.dealer), DealerRequestFilter{})
	suite.Require().NoError(err)
	assert.EqualValues(suite.T(), 2, total)
	suite.Require().Len(own, 2)
	assert.Equal(suite.T(), second.ID, own[0].ID)
	assert.Equal(suite.T(), first.ID, own[1].ID)

	viaStalkist, _, err := suite.h.requests.ListRequests(suite.ctx, actorOf(suite.stalkist), DealerRequestFilter{})
	suite.Require().NoError(err)
	assert.Len(suite.T(), viaStalkist, 2)

	otherID := suite.other.ID
	hidden, _, err := suite.h.requests.ListRequests(suite.ctx, actorOf(suite.stalkist), DealerRequestFilter{DealerID: &otherID})
	suite.Require().NoError(err)
	assert.Empty(suite.T(), hidden)

	all, total, err := suite.h.requests.ListRequests(suite.ctx, actorOf(suite.admin), DealerRequestFilter{})
	suite.Require().NoError(err)
	assert.EqualValues(suite.T(), 3, total)
	assert.Len(suite.T(), all, 3)

	approvedStatus := models.RequestStatusApproved
	none, _, err := suite.h.requests.ListRequests(suite.ctx, actorOf(suite.admin), DealerRequestFilter{Status: &approvedStatus})
	suite.Require().NoError(err)
	assert.Empty(suite.T(), none)

	salesman := suite.h.user(suite.T(), models.RoleSalesman, suite.dealer)
	_, _, err = suite.h.requests.ListRequests(suite.ctx, actorOf(salesman), DealerRequestFilter{})
	assert.ErrorIs(suite.T(), err, ErrForbidden)
}

func (suite *DealerRequestTestSuite) TestNotificationsFollowTheRequest() {
	req := suite.create(suite.dealer, 5)
	_, err := suite.h.requests.ApproveRequest(suite.ctx, req.ID, suite.admin.ID, &ProcessRequestRequest{})
	suite.Require().NoError(err)

	adminInbox, err := suite.h.notifications.List(suite.ctx, actorOf(suite.admin), 0)
	suite.Require().NoError(err)
	suite.Require().Len(adminInbox, 1)
	assert.Equal(suite.T(), NotificationRequestCreated, adminInbox[0].Type)

	dealerInbox, err := suite.h.notifications.List(suite.ctx, actorOf(suite.dealer), 0)
	suite.Require().NoError(err)
	suite.Require().Len(dealerInbox, 1)
	assert.Equal(suite.T(), NotificationRequestApproved, dealerInbox[0].Type)

	suite.Require().NoError(suite.h.notifications.MarkRead(suite.ctx, actorOf(suite.dealer), dealerInbox[0].ID))
	err = suite.h.notifications.MarkRead(suite.ctx, actorOf(suite.other), dealerInbox[0].ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func TestDealerRequestTestSuite(t *testing.T) {
	suite.Run(t, new(DealerRequestTestSuite))
}

func TestApprovalCanRequireVerifiedPayment(t *testing.T) {
	h := newHarness(config.LedgerConfig{RequireVerifiedPayment: true})
	ctx := context.Background()
	admin := h.user(t, models.RoleAdmin, nil)
	dealer := h.user(t, models.RoleDealer, admin)
	product := h.product(t, "Clove", 50, 5, "2.00")

	req, err := h.requests.CreateRequest(ctx, dealer.ID, &CreateDealerRequestRequest{ProductID: product.ID, Strips: 10})
	assert.NoError(t, err)

	_, err = h.requests.ApproveRequest(ctx, req.ID, admin.ID, &ProcessRequestRequest{})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 50, h.stock(t, product.ID))

	_, err = h.payments.UploadReceipt(ctx, req.ID, dealer.ID, pngReceipt())
	assert.NoError(t, err)
	_, err = h.payments.VerifyPayment(ctx, req.ID, admin.ID, &PaymentDecisionRequest{})
	assert.NoError(t, err)

	approved, err := h.requests.ApproveRequest(ctx, req.ID, admin.ID, &ProcessRequestRequest{})
	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, approved.Status)
	assert.Equal(t, 40, h.stock(t, product.ID))
}
