// internal/events/events.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeRequestCreated    = "dealer_request.created"
	TypeRequestApproved   = "dealer_request.approved"
	TypeRequestCancelled  = "dealer_request.cancelled"
	TypePaymentPaid       = "payment.paid"
	TypePaymentVerified   = "payment.verified"
	TypePaymentRejected   = "payment.rejected"
	TypeAllocationCreated = "stock_allocation.created"
	TypeStockAdjusted     = "product.stock_adjusted"
)

// Event is one committed change of the distribution ledger.
type Event struct {
	Type       string                 `json:"type"`
	ResourceID uuid.UUID              `json:"resource_id"`
	ActorID    uuid.UUID              `json:"actor_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

func New(eventType string, resourceID, actorID uuid.UUID, data map[string]interface{}) Event {
	return Event{
		Type:       eventType,
		ResourceID: resourceID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers events after the originating transaction committed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
