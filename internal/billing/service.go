// AngelaMos | 2026
// service.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

// Store is the subscription record store: the only writer path for roles
// and billing linkage. Implementations must serialize per user with a
// single-statement atomic update, never read-modify-write.
type Store interface {
	GetRole(ctx context.Context, userID string) (entitlement.Role, error)
	SetRoleFromBilling(
		ctx context.Context,
		userID string,
		role entitlement.Role,
		occurredAt time.Time,
	) error
	RecordBillingLinkage(ctx context.Context, userID string, l Linkage) error
}

// Service applies verified billing events: transition, persist, dedup.
// Role writes themselves are idempotent absolute assignments; the event-id
// dedup only guards the non-idempotent audit side effect, so the key is
// consumed after the event's side effects land, never before.
type Service struct {
	store    Store
	catalog  *Catalog
	redis    *redis.Client
	dedupTTL time.Duration
	logger   *slog.Logger
}

func NewService(
	store Store,
	catalog *Catalog,
	redisClient *redis.Client,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    store,
		catalog:  catalog,
		redis:    redisClient,
		dedupTTL: 72 * time.Hour,
		logger:   logger,
	}
}

// ProcessEvent runs the decide and apply stages for one verified event.
// A nil return means the event was received and handled per policy — which
// includes discarded events — so the handler can acknowledge and stop the
// provider's retry loop. Errors are reserved for internal failures where a
// retry could actually succeed.
func (s *Service) ProcessEvent(ctx context.Context, ev *Event) error {
	decision := Decide(s.catalog, ev)

	switch decision.Action {
	case ActionApply:
		return s.apply(ctx, ev, decision)

	case ActionAudit:
		if s.firstDelivery(ctx, ev.EventID) {
			s.audit(ev, "recorded", "")
		}
		return nil

	case ActionSkip:
		s.logger.Info("webhook event skipped",
			"event_id", ev.EventID,
			"event_type", ev.EventType,
			"reason", decision.Reason,
		)
		return nil

	case ActionDiscard:
		s.logger.Warn("webhook event discarded",
			"event_id", ev.EventID,
			"event_type", ev.EventType,
			"reason", decision.Reason,
		)
		return nil

	default:
		return fmt.Errorf("process event: unknown action %q", decision.Action)
	}
}

func (s *Service) apply(
	ctx context.Context,
	ev *Event,
	decision Decision,
) error {
	err := s.store.SetRoleFromBilling(
		ctx,
		decision.UserID,
		decision.Role,
		decision.OccurredAt,
	)

	switch {
	case errors.Is(err, core.ErrNotFound):
		// Linkage points at a user we do not have. Inert, acknowledged.
		s.logger.Warn("webhook event for unknown user",
			"event_id", ev.EventID,
			"user_id", decision.UserID,
		)
		return nil

	case errors.Is(err, ErrStaleEvent):
		// A newer transition already landed; the out-of-order guard
		// rejected this one. Documented policy, not an error.
		s.logger.Info("stale webhook event rejected",
			"event_id", ev.EventID,
			"user_id", decision.UserID,
			"occurred_at", decision.OccurredAt,
		)
		return nil

	case err != nil:
		return fmt.Errorf("apply role transition: %w", err)
	}

	if decision.Linkage != nil {
		if linkErr := s.store.RecordBillingLinkage(
			ctx, decision.UserID, *decision.Linkage,
		); linkErr != nil {
			// Linkage is audit-only; the role change already landed and
			// must not be rolled back over bookkeeping.
			s.logger.Error("record billing linkage failed",
				"event_id", ev.EventID,
				"user_id", decision.UserID,
				"error", linkErr,
			)
		}
	}

	// Dedup runs only after the transition landed. An apply that fails with
	// an internal error leaves the key unset, so the provider's retry still
	// counts as the first delivery and the audit entry is not lost.
	if s.firstDelivery(ctx, ev.EventID) {
		s.audit(ev, "applied", string(decision.Role))
	}

	return nil
}

// ErrStaleEvent is returned by Store implementations when the out-of-order
// guard rejects a transition older than the last applied one.
var ErrStaleEvent = errors.New("stale billing event")

// firstDelivery consumes the dedup key and reports whether this event id
// was seen before. SET NX with a TTL, same shape as the auth token
// blacklist. Dedup is advisory: on Redis failure it reports first delivery
// because transitions are idempotent and a duplicate audit line beats a
// missing one.
func (s *Service) firstDelivery(ctx context.Context, eventID string) bool {
	key := "billing:event:" + eventID

	first, err := s.redis.SetNX(ctx, key, "1", s.dedupTTL).Result()
	if err != nil {
		s.logger.Warn("webhook dedup unavailable",
			"event_id", eventID,
			"error", err,
		)
		return true
	}

	return first
}

func (s *Service) audit(ev *Event, outcome, role string) {
	attrs := []any{
		"event_id", ev.EventID,
		"event_type", ev.EventType,
		"user_id", ev.UserID(),
		"subscription_id", ev.Data.ID,
		"outcome", outcome,
	}
	if role != "" {
		attrs = append(attrs, "role", role)
	}

	s.logger.Info("billing event audit", attrs...)
}
