// AngelaMos | 2026
// transition_test.go

package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedomo/vedomo-api/internal/entitlement"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	catalog, err := NewCatalog([]Product{
		{
			PriceID:   "pri_standard_month",
			Role:      entitlement.RoleStandard,
			Name:      "Standard",
			NameRU:    "Стандарт",
			AmountUSD: "29.00",
			Interval:  "month",
		},
		{
			PriceID:   "pri_premium_month",
			Role:      entitlement.RolePremium,
			Name:      "Premium",
			NameRU:    "Премиум",
			AmountUSD: "79.00",
			Interval:  "month",
		},
	})
	require.NoError(t, err)

	return catalog
}

func syntheticEvent(
	eventType EventType,
	userID, priceID, status string,
) *Event {
	ev := &Event{
		EventID:    "evt_" + string(eventType),
		EventType:  eventType,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data: EventData{
			ID:         "sub_123",
			Status:     status,
			CustomerID: "ctm_123",
			CustomData: CustomData{UserID: userID},
		},
	}

	if priceID != "" {
		ev.Data.Items = []EventItem{{Price: PriceRef{ID: priceID}}}
	}

	return ev
}

func TestDecideTransitionTable(t *testing.T) {
	catalog := testCatalog(t)

	cases := []struct {
		name       string
		event      *Event
		wantAction Action
		wantRole   entitlement.Role
	}{
		{
			name:       "created grants mapped role",
			event:      syntheticEvent(EventSubscriptionCreated, "u1", "pri_standard_month", StatusActive),
			wantAction: ActionApply,
			wantRole:   entitlement.RoleStandard,
		},
		{
			name:       "created premium grants premium",
			event:      syntheticEvent(EventSubscriptionCreated, "u1", "pri_premium_month", StatusActive),
			wantAction: ActionApply,
			wantRole:   entitlement.RolePremium,
		},
		{
			name:       "updated active re-applies mapped role",
			event:      syntheticEvent(EventSubscriptionUpdated, "u1", "pri_premium_month", StatusActive),
			wantAction: ActionApply,
			wantRole:   entitlement.RolePremium,
		},
		{
			name:       "updated past_due is a policy no-op",
			event:      syntheticEvent(EventSubscriptionUpdated, "u1", "pri_premium_month", StatusPastDue),
			wantAction: ActionSkip,
		},
		{
			name:       "canceled downgrades to registered",
			event:      syntheticEvent(EventSubscriptionCanceled, "u1", "", StatusCanceled),
			wantAction: ActionApply,
			wantRole:   entitlement.RoleRegistered,
		},
		{
			name:       "paused downgrades to registered",
			event:      syntheticEvent(EventSubscriptionPaused, "u1", "", StatusPaused),
			wantAction: ActionApply,
			wantRole:   entitlement.RoleRegistered,
		},
		{
			name:       "resumed re-grants mapped role",
			event:      syntheticEvent(EventSubscriptionResumed, "u1", "pri_standard_month", StatusActive),
			wantAction: ActionApply,
			wantRole:   entitlement.RoleStandard,
		},
		{
			name:       "transaction completed is audit only",
			event:      syntheticEvent(EventTransactionCompleted, "u1", "pri_standard_month", ""),
			wantAction: ActionAudit,
		},
		{
			name:       "transaction payment failed is audit only",
			event:      syntheticEvent(EventTransactionFailed, "u1", "", ""),
			wantAction: ActionAudit,
		},
		{
			name:       "unknown event type is discarded",
			event:      syntheticEvent(EventType("subscription.imported"), "u1", "pri_standard_month", StatusActive),
			wantAction: ActionDiscard,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(catalog, tc.event)

			assert.Equal(t, tc.wantAction, decision.Action)
			if tc.wantAction == ActionApply {
				assert.Equal(t, tc.wantRole, decision.Role)
				assert.Equal(t, "u1", decision.UserID)
				assert.Equal(t, tc.event.OccurredAt, decision.OccurredAt)
			}
		})
	}
}

func TestDecideMissingRequiredFields(t *testing.T) {
	catalog := testCatalog(t)

	cases := []struct {
		name  string
		event *Event
	}{
		{
			name:  "created without user linkage",
			event: syntheticEvent(EventSubscriptionCreated, "", "pri_standard_month", StatusActive),
		},
		{
			name:  "created without line item",
			event: syntheticEvent(EventSubscriptionCreated, "u1", "", StatusActive),
		},
		{
			name:  "created with unknown price id",
			event: syntheticEvent(EventSubscriptionCreated, "u1", "pri_legacy_gone", StatusActive),
		},
		{
			name:  "canceled without user linkage",
			event: syntheticEvent(EventSubscriptionCanceled, "", "", StatusCanceled),
		},
		{
			name:  "resumed without user linkage",
			event: syntheticEvent(EventSubscriptionResumed, "", "pri_standard_month", StatusActive),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(catalog, tc.event)

			assert.Equal(t, ActionDiscard, decision.Action)
			assert.NotEmpty(t, decision.Reason)
		})
	}
}

func TestDecideRecordsDistinctPausedAndCanceledStatus(t *testing.T) {
	catalog := testCatalog(t)

	paused := Decide(catalog, syntheticEvent(
		EventSubscriptionPaused, "u1", "", ""))
	canceled := Decide(catalog, syntheticEvent(
		EventSubscriptionCanceled, "u1", "", ""))

	require.NotNil(t, paused.Linkage)
	require.NotNil(t, canceled.Linkage)
	assert.Equal(t, StatusPaused, paused.Linkage.Status)
	assert.Equal(t, StatusCanceled, canceled.Linkage.Status)
	// Same downgraded role either way.
	assert.Equal(t, entitlement.RoleRegistered, paused.Role)
	assert.Equal(t, entitlement.RoleRegistered, canceled.Role)
}

func TestDecideCarriesBillingPeriod(t *testing.T) {
	catalog := testCatalog(t)

	ev := syntheticEvent(EventSubscriptionCreated, "u1", "pri_premium_month", StatusActive)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	ev.Data.BillingPeriod = &BillingPeriod{StartsAt: start, EndsAt: end}

	decision := Decide(catalog, ev)

	require.NotNil(t, decision.Linkage)
	require.NotNil(t, decision.Linkage.PeriodStart)
	require.NotNil(t, decision.Linkage.PeriodEnd)
	assert.Equal(t, start, *decision.Linkage.PeriodStart)
	assert.Equal(t, end, *decision.Linkage.PeriodEnd)
	assert.Equal(t, "sub_123", decision.Linkage.SubscriptionID)
}

func TestParseEventRejectsMissingIdentity(t *testing.T) {
	_, err := ParseEvent([]byte(`{"event_type":"subscription.created"}`))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`{"event_id":"evt_1"}`))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}
