// AngelaMos | 2026
// service_test.go

package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

// fakeStore mirrors the repository semantics: atomic absolute assignment,
// administrator excluded, out-of-order guard on the event timestamp.
type fakeStore struct {
	mu          sync.Mutex
	roles       map[string]entitlement.Role
	lastEventAt map[string]time.Time
	linkages    map[string]Linkage
	emails      map[string]string
	customerIDs map[string]string

	setRoleCalls int
	auditableErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roles:       make(map[string]entitlement.Role),
		lastEventAt: make(map[string]time.Time),
		linkages:    make(map[string]Linkage),
		emails:      make(map[string]string),
		customerIDs: make(map[string]string),
	}
}

func (f *fakeStore) GetRole(
	_ context.Context,
	userID string,
) (entitlement.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[userID]
	if !ok {
		return "", fmt.Errorf("get role: %w", core.ErrNotFound)
	}
	return role, nil
}

func (f *fakeStore) SetRoleFromBilling(
	_ context.Context,
	userID string,
	role entitlement.Role,
	occurredAt time.Time,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setRoleCalls++

	if f.auditableErr != nil {
		return f.auditableErr
	}

	current, ok := f.roles[userID]
	if !ok {
		return fmt.Errorf("set role: %w", core.ErrNotFound)
	}

	if current == entitlement.RoleAdmin {
		return nil
	}

	if last, seen := f.lastEventAt[userID]; seen && occurredAt.Before(last) {
		return ErrStaleEvent
	}

	f.roles[userID] = role
	f.lastEventAt[userID] = occurredAt
	return nil
}

func (f *fakeStore) RecordBillingLinkage(
	_ context.Context,
	userID string,
	l Linkage,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.roles[userID]; !ok {
		return fmt.Errorf("record billing linkage: %w", core.ErrNotFound)
	}

	f.linkages[userID] = l
	return nil
}

func (f *fakeStore) GetBillingProfile(
	_ context.Context,
	userID string,
) (*BillingProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[userID]
	if !ok {
		return nil, fmt.Errorf("get billing profile: %w", core.ErrNotFound)
	}

	return &BillingProfile{
		Email:      f.emails[userID],
		CustomerID: f.customerIDs[userID],
		Role:       role,
	}, nil
}

func (f *fakeStore) SaveCustomerID(
	_ context.Context,
	userID, customerID string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.customerIDs[userID] = customerID
	return nil
}

func (f *fakeStore) roleOf(userID string) entitlement.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[userID]
}

// auditRecorder counts audit lines emitted through the service logger.
type auditRecorder struct {
	mu    sync.Mutex
	count int
}

func (a *auditRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (a *auditRecorder) Handle(_ context.Context, rec slog.Record) error {
	if rec.Message == "billing event audit" {
		a.mu.Lock()
		a.count++
		a.mu.Unlock()
	}
	return nil
}

func (a *auditRecorder) WithAttrs([]slog.Attr) slog.Handler { return a }
func (a *auditRecorder) WithGroup(string) slog.Handler      { return a }

func (a *auditRecorder) audits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

func newTestService(
	t *testing.T,
	store *fakeStore,
) (*Service, *auditRecorder) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	recorder := &auditRecorder{}
	svc := NewService(store, testCatalog(t), client, slog.New(recorder))

	return svc, recorder
}

func TestProcessEventIdempotentGrant(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	svc, recorder := newTestService(t, store)

	ev := syntheticEvent(EventSubscriptionCreated, "u1", "pri_standard_month", StatusActive)

	for range 5 {
		require.NoError(t, svc.ProcessEvent(context.Background(), ev))
		assert.Equal(t, entitlement.RoleStandard, store.roleOf("u1"))
	}

	// The role never oscillates and the audit side effect fired once.
	assert.Equal(t, 1, recorder.audits())
}

func TestProcessEventLifecycleScenario(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	svc, recorder := newTestService(t, store)
	ctx := context.Background()

	created := syntheticEvent(EventSubscriptionCreated, "u1", "pri_standard_month", StatusActive)
	created.EventID = "evt_created_1"
	created.OccurredAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, svc.ProcessEvent(ctx, created))
	assert.Equal(t, entitlement.RoleStandard, store.roleOf("u1"))

	// Duplicate delivery: same end state, no second audit entry.
	require.NoError(t, svc.ProcessEvent(ctx, created))
	assert.Equal(t, entitlement.RoleStandard, store.roleOf("u1"))
	assert.Equal(t, 1, recorder.audits())

	canceled := syntheticEvent(EventSubscriptionCanceled, "u1", "", StatusCanceled)
	canceled.EventID = "evt_canceled_1"
	canceled.OccurredAt = created.OccurredAt.Add(time.Hour)

	require.NoError(t, svc.ProcessEvent(ctx, canceled))
	assert.Equal(t, entitlement.RoleRegistered, store.roleOf("u1"))

	// Stale re-delivery of the original created event arrives after the
	// cancellation. The timestamp guard rejects the re-grant: this is the
	// documented ordering policy, and the user stays registered.
	require.NoError(t, svc.ProcessEvent(ctx, created))
	assert.Equal(t, entitlement.RoleRegistered, store.roleOf("u1"))

	assert.Equal(t, StatusCanceled, store.linkages["u1"].Status)
}

func TestProcessEventAdministratorImmunity(t *testing.T) {
	store := newFakeStore()
	store.roles["admin1"] = entitlement.RoleAdmin
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	events := []*Event{
		syntheticEvent(EventSubscriptionCreated, "admin1", "pri_standard_month", StatusActive),
		syntheticEvent(EventSubscriptionUpdated, "admin1", "pri_premium_month", StatusActive),
		syntheticEvent(EventSubscriptionCanceled, "admin1", "", StatusCanceled),
		syntheticEvent(EventSubscriptionPaused, "admin1", "", StatusPaused),
		syntheticEvent(EventSubscriptionResumed, "admin1", "pri_premium_month", StatusActive),
	}

	for i, ev := range events {
		ev.EventID = fmt.Sprintf("evt_admin_%d", i)
		ev.OccurredAt = ev.OccurredAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, svc.ProcessEvent(ctx, ev))
		assert.Equal(t, entitlement.RoleAdmin, store.roleOf("admin1"))
	}
}

func TestProcessEventUnknownUserIsInert(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store)

	ev := syntheticEvent(EventSubscriptionCreated, "ghost", "pri_standard_month", StatusActive)

	// Acknowledged, not an error: the provider must not retry forever.
	assert.NoError(t, svc.ProcessEvent(context.Background(), ev))
}

func TestProcessEventDiscardLeavesRoleUntouched(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	svc, _ := newTestService(t, store)

	for _, ev := range []*Event{
		syntheticEvent(EventSubscriptionCreated, "u1", "pri_unknown", StatusActive),
		syntheticEvent(EventSubscriptionCreated, "", "pri_standard_month", StatusActive),
		syntheticEvent(EventType("mystery.event"), "u1", "pri_standard_month", ""),
	} {
		require.NoError(t, svc.ProcessEvent(context.Background(), ev))
		assert.Equal(t, entitlement.RoleRegistered, store.roleOf("u1"))
	}

	assert.Zero(t, store.setRoleCalls)
}

func TestProcessEventTransactionEventsNeverMutate(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleStandard
	svc, recorder := newTestService(t, store)
	ctx := context.Background()

	completed := syntheticEvent(EventTransactionCompleted, "u1", "pri_premium_month", "")
	failed := syntheticEvent(EventTransactionFailed, "u1", "", "")

	require.NoError(t, svc.ProcessEvent(ctx, completed))
	require.NoError(t, svc.ProcessEvent(ctx, failed))

	assert.Equal(t, entitlement.RoleStandard, store.roleOf("u1"))
	assert.Zero(t, store.setRoleCalls)
	assert.Equal(t, 2, recorder.audits())
}

func TestProcessEventInternalFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	store.auditableErr = fmt.Errorf("connection reset")
	svc, _ := newTestService(t, store)

	ev := syntheticEvent(EventSubscriptionCreated, "u1", "pri_standard_month", StatusActive)

	assert.Error(t, svc.ProcessEvent(context.Background(), ev))
}

func TestProcessEventRetryAfterFailureStillAudits(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	store.auditableErr = fmt.Errorf("connection reset")
	svc, recorder := newTestService(t, store)
	ctx := context.Background()

	ev := syntheticEvent(EventSubscriptionCreated, "u1", "pri_standard_month", StatusActive)

	// First delivery fails inside the store, so the provider will retry.
	require.Error(t, svc.ProcessEvent(ctx, ev))
	assert.Zero(t, recorder.audits())

	// The failed attempt must not have consumed the dedup key: the retry is
	// still treated as the first delivery and emits the audit entry.
	store.auditableErr = nil
	require.NoError(t, svc.ProcessEvent(ctx, ev))
	assert.Equal(t, entitlement.RoleStandard, store.roleOf("u1"))
	assert.Equal(t, 1, recorder.audits())
}

func TestProcessEventDedupSurvivesRedisOutage(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	recorder := &auditRecorder{}
	svc := NewService(store, testCatalog(t), client, slog.New(recorder))

	mr.Close()

	ev := syntheticEvent(EventSubscriptionCreated, "u1", "pri_standard_month", StatusActive)

	// Dedup fails open; the role transition still applies idempotently.
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Equal(t, entitlement.RoleStandard, store.roleOf("u1"))
}
