// AngelaMos | 2026
// event.go

package billing

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventSubscriptionCanceled EventType = "subscription.canceled"
	EventSubscriptionPaused   EventType = "subscription.paused"
	EventSubscriptionResumed  EventType = "subscription.resumed"
	EventTransactionCompleted EventType = "transaction.completed"
	EventTransactionFailed    EventType = "transaction.payment_failed"
)

// Subscription statuses as reported by the provider. Stored on the user row
// for audit only; the paywall never reads them.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusPaused   = "paused"
	StatusCanceled = "canceled"
)

// Event is one provider notification. Deliveries may repeat and may arrive
// out of order; EventID is the dedup key and OccurredAt orders transitions.
type Event struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       EventData `json:"data"`
}

type EventData struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	CustomerID    string         `json:"customer_id"`
	CustomData    CustomData     `json:"custom_data"`
	Items         []EventItem    `json:"items"`
	BillingPeriod *BillingPeriod `json:"current_billing_period"`
}

// CustomData carries the opaque user linkage we attach at checkout time.
type CustomData struct {
	UserID string `json:"user_id"`
}

type EventItem struct {
	Price PriceRef `json:"price"`
}

type PriceRef struct {
	ID string `json:"id"`
}

type BillingPeriod struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("parse webhook event: %w", err)
	}

	if ev.EventID == "" {
		return nil, fmt.Errorf("parse webhook event: missing event_id")
	}
	if ev.EventType == "" {
		return nil, fmt.Errorf("parse webhook event: missing event_type")
	}

	return &ev, nil
}

// PriceID returns the first line item's price id, or "" when absent.
func (e *Event) PriceID() string {
	if len(e.Data.Items) == 0 {
		return ""
	}
	return e.Data.Items[0].Price.ID
}

// UserID returns the internal user linkage, or "" when the provider object
// was created without our custom data.
func (e *Event) UserID() string {
	return e.Data.CustomData.UserID
}
