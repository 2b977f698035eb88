// AngelaMos | 2026
// transition.go

package billing

import (
	"time"

	"github.com/vedomo/vedomo-api/internal/entitlement"
)

// Action classifies what a verified event should do.
type Action string

const (
	// ActionApply assigns the decided role (an absolute assignment, which
	// is what makes repeated delivery naturally idempotent).
	ActionApply Action = "apply"
	// ActionAudit records the event without touching any role. Transaction
	// events never mutate roles; subscription events alone drive access, so
	// a single purchase is never processed twice.
	ActionAudit Action = "audit"
	// ActionSkip is a policy no-op on a well-formed event, e.g. an updated
	// event whose status is not active.
	ActionSkip Action = "skip"
	// ActionDiscard drops a malformed-but-authentic event: missing user
	// linkage, unknown price id, unknown event type. Logged, acknowledged,
	// never applied.
	ActionDiscard Action = "discard"
)

// Decision is the pure outcome of the transition table for one event.
type Decision struct {
	Action     Action
	UserID     string
	Role       entitlement.Role
	Linkage    *Linkage
	OccurredAt time.Time
	Reason     string
}

// Linkage is the audit-only billing state recorded alongside a transition.
// The paywall evaluator never reads it.
type Linkage struct {
	SubscriptionID string
	CustomerID     string
	Status         string
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
}

// Decide implements the role-transition table. It is pure: no store reads,
// no network, fully testable with synthetic events. Administrator immunity
// is not decided here — it is enforced structurally by the record store,
// whose role update excludes administrators entirely.
func Decide(catalog *Catalog, ev *Event) Decision {
	switch ev.EventType {
	case EventSubscriptionCreated, EventSubscriptionResumed:
		return decideGrant(catalog, ev)

	case EventSubscriptionUpdated:
		if ev.Data.Status != StatusActive {
			// Non-active updates wait for the explicit cancel/pause event.
			return Decision{
				Action: ActionSkip,
				UserID: ev.UserID(),
				Reason: "subscription status is " + ev.Data.Status,
			}
		}
		return decideGrant(catalog, ev)

	case EventSubscriptionCanceled:
		return decideDowngrade(ev, StatusCanceled)

	case EventSubscriptionPaused:
		// A pause downgrades exactly like a cancellation; the two differ
		// only in the recorded provider status.
		return decideDowngrade(ev, StatusPaused)

	case EventTransactionCompleted, EventTransactionFailed:
		return Decision{Action: ActionAudit, UserID: ev.UserID()}

	default:
		return Decision{
			Action: ActionDiscard,
			Reason: "unknown event type " + string(ev.EventType),
		}
	}
}

func decideGrant(catalog *Catalog, ev *Event) Decision {
	userID := ev.UserID()
	if userID == "" {
		return Decision{Action: ActionDiscard, Reason: "missing user linkage"}
	}

	priceID := ev.PriceID()
	if priceID == "" {
		return Decision{
			Action: ActionDiscard,
			UserID: userID,
			Reason: "missing line item price id",
		}
	}

	product, ok := catalog.Resolve(priceID)
	if !ok {
		return Decision{
			Action: ActionDiscard,
			UserID: userID,
			Reason: "unknown price id " + priceID,
		}
	}

	return Decision{
		Action:     ActionApply,
		UserID:     userID,
		Role:       product.Role,
		Linkage:    linkageFromEvent(ev, ev.Data.Status),
		OccurredAt: ev.OccurredAt,
	}
}

func decideDowngrade(ev *Event, status string) Decision {
	userID := ev.UserID()
	if userID == "" {
		return Decision{Action: ActionDiscard, Reason: "missing user linkage"}
	}

	return Decision{
		Action:     ActionApply,
		UserID:     userID,
		Role:       entitlement.RoleRegistered,
		Linkage:    linkageFromEvent(ev, status),
		OccurredAt: ev.OccurredAt,
	}
}

func linkageFromEvent(ev *Event, status string) *Linkage {
	if status == "" {
		status = ev.Data.Status
	}

	l := &Linkage{
		SubscriptionID: ev.Data.ID,
		CustomerID:     ev.Data.CustomerID,
		Status:         status,
	}

	if bp := ev.Data.BillingPeriod; bp != nil {
		start, end := bp.StartsAt, bp.EndsAt
		l.PeriodStart = &start
		l.PeriodEnd = &end
	}

	return l
}
