// AngelaMos | 2026
// handler_test.go

package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedomo/vedomo-api/internal/entitlement"
	"github.com/vedomo/vedomo-api/internal/middleware"
)

func newTestHandler(t *testing.T, store *fakeStore) *Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(&auditRecorder{})
	catalog := testCatalog(t)
	svc := NewService(store, catalog, client, logger)
	checkout := NewCheckoutService(
		&fakeProvider{},
		catalog,
		store,
		"https://vedomo.example/account",
		"https://vedomo.example/pricing",
		logger,
	)

	return NewHandler(svc, checkout, catalog, testSecret, logger)
}

func signedWebhookRequest(t *testing.T, ev *Event) *http.Request {
	t.Helper()

	body, err := json.Marshal(ev)
	require.NoError(t, err)

	req := httptest.NewRequest(
		http.MethodPost, "/v1/billing/webhook", bytes.NewReader(body))
	req.Header.Set(
		SignatureHeader,
		SignPayload(testSecret, time.Now().Unix(), body),
	)

	return req
}

func TestWebhookMissingSignatureIs400(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(t, store)

	req := httptest.NewRequest(
		http.MethodPost, "/v1/billing/webhook",
		bytes.NewReader([]byte(`{"event_id":"evt_1","event_type":"subscription.created"}`)),
	)
	rec := httptest.NewRecorder()

	h.Webhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.setRoleCalls)
}

func TestWebhookTamperedSignatureIs401(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	h := newTestHandler(t, store)

	// Every event type through the same tampered gate: none may reach the
	// transition table.
	for _, eventType := range []EventType{
		EventSubscriptionCreated,
		EventSubscriptionUpdated,
		EventSubscriptionCanceled,
		EventSubscriptionPaused,
		EventSubscriptionResumed,
		EventTransactionCompleted,
		EventTransactionFailed,
	} {
		ev := syntheticEvent(eventType, "u1", "pri_standard_month", StatusActive)
		body, err := json.Marshal(ev)
		require.NoError(t, err)

		req := httptest.NewRequest(
			http.MethodPost, "/v1/billing/webhook", bytes.NewReader(body))
		req.Header.Set(
			SignatureHeader,
			SignPayload("whsec_wrong", time.Now().Unix(), body),
		)
		rec := httptest.NewRecorder()

		h.Webhook(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "type=%s", eventType)
	}

	assert.Zero(t, store.setRoleCalls)
	assert.Equal(t, entitlement.RoleRegistered, store.roleOf("u1"))
}

func TestWebhookAppliesTransition(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	h := newTestHandler(t, store)

	ev := syntheticEvent(EventSubscriptionCreated, "u1", "pri_premium_month", StatusActive)
	rec := httptest.NewRecorder()

	h.Webhook(rec, signedWebhookRequest(t, ev))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entitlement.RolePremium, store.roleOf("u1"))
}

func TestWebhookAcksAuthenticGarbage(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(t, store)

	body := []byte(`{"this is": "not an event"}`)
	req := httptest.NewRequest(
		http.MethodPost, "/v1/billing/webhook", bytes.NewReader(body))
	req.Header.Set(
		SignatureHeader,
		SignPayload(testSecret, time.Now().Unix(), body),
	)
	rec := httptest.NewRecorder()

	h.Webhook(rec, req)

	// Properly signed but unparseable: acknowledged so the provider stops
	// retrying, with nothing applied.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, store.setRoleCalls)
}

func TestWebhookDiscardedEventStillAcked(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	h := newTestHandler(t, store)

	ev := syntheticEvent(EventSubscriptionCreated, "u1", "pri_retired_price", StatusActive)
	rec := httptest.NewRecorder()

	h.Webhook(rec, signedWebhookRequest(t, ev))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entitlement.RoleRegistered, store.roleOf("u1"))
}

func authedRequest(method, target string, body []byte, userID string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestCreateCheckoutHandler(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	store.emails["u1"] = "reader@vedomo.example"
	h := newTestHandler(t, store)

	body := []byte(`{"product_id":"pri_standard_month"}`)
	rec := httptest.NewRecorder()

	h.CreateCheckout(rec, authedRequest(
		http.MethodPost, "/v1/billing/checkout", body, "u1"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data CheckoutResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.URL)
}

func TestCreateCheckoutUnknownProductIs400(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = entitlement.RoleRegistered
	h := newTestHandler(t, store)

	body := []byte(`{"product_id":"pri_nope"}`)
	rec := httptest.NewRecorder()

	h.CreateCheckout(rec, authedRequest(
		http.MethodPost, "/v1/billing/checkout", body, "u1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCheckoutUnauthenticatedIs401(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(t, store)

	body := []byte(`{"product_id":"pri_standard_month"}`)
	req := httptest.NewRequest(
		http.MethodPost, "/v1/billing/checkout", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateCheckout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListProducts(t *testing.T) {
	h := newTestHandler(t, newFakeStore())

	rec := httptest.NewRecorder()
	h.ListProducts(rec, httptest.NewRequest(
		http.MethodGet, "/v1/billing/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []ProductResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "pri_standard_month", resp.Data[0].PriceID)
	assert.Equal(t, "Стандарт", resp.Data[0].NameRU)
}
