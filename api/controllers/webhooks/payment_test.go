package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pwvale/panel-backend/internal/gateway"
	paymentwebhook "github.com/pwvale/panel-backend/internal/webhooks/payments"
	"github.com/pwvale/panel-backend/pkg/config"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
)

const testSecret = "whsec_test"

type fakeEventHandler struct {
	calls int
	err   error
}

func (f *fakeEventHandler) HandleEvent(ctx context.Context, event *paymentwebhook.Event) error {
	f.calls++
	return f.err
}

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = "1"
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "pwp:idem:" + scope + ":" + id
}

func (s *memoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func signedEvent(t *testing.T, eventType string) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(paymentwebhook.Event{
		ID:         "evt_1",
		Type:       eventType,
		DonationID: 42,
		Reference:  "gw-9",
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, gateway.ComputeSignature(testSecret, payload)
}

func newHandler(t *testing.T, svc *fakeEventHandler) (http.HandlerFunc, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	guard, err := paymentwebhook.NewIdempotencyGuard(store, time.Minute, "payments")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	cfg := config.GatewayConfig{WebhookSecret: testSecret}
	return PaymentWebhook(svc, cfg, guard, nil), store
}

func post(handler http.HandlerFunc, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(gateway.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPaymentWebhook_SuccessAndDuplicate(t *testing.T) {
	payload, signature := signedEvent(t, paymentwebhook.EventPaymentCompleted)
	svc := &fakeEventHandler{}
	handler, _ := newHandler(t, svc)

	rec := post(handler, payload, signature)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected 1 handler call, got %d", svc.calls)
	}

	// the gateway redelivers; the guard absorbs it
	rec = post(handler, payload, signature)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec.Code)
	}
	if svc.calls != 1 {
		t.Fatalf("duplicate must not reach the handler, got %d calls", svc.calls)
	}
}

func TestPaymentWebhook_RejectsBadSignature(t *testing.T) {
	payload, _ := signedEvent(t, paymentwebhook.EventPaymentCompleted)
	svc := &fakeEventHandler{}
	handler, _ := newHandler(t, svc)

	for _, signature := range []string{"", "deadbeef"} {
		rec := post(handler, payload, signature)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for signature %q, got %d", signature, rec.Code)
		}
	}
	if svc.calls != 0 {
		t.Fatal("unsigned callbacks must never reach the handler")
	}
}

func TestPaymentWebhook_TamperedBodyRejected(t *testing.T) {
	payload, signature := signedEvent(t, paymentwebhook.EventPaymentCompleted)
	svc := &fakeEventHandler{}
	handler, _ := newHandler(t, svc)

	tampered := bytes.Replace(payload, []byte(`"donation_id":42`), []byte(`"donation_id":43`), 1)
	rec := post(handler, tampered, signature)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered body, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatal("tampered callbacks must never reach the handler")
	}
}

func TestPaymentWebhook_HandlerErrorReleasesGuard(t *testing.T) {
	payload, signature := signedEvent(t, paymentwebhook.EventPaymentCompleted)
	svc := &fakeEventHandler{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	handler, store := newHandler(t, svc)

	rec := post(handler, payload, signature)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", rec.Code, rec.Body.String())
	}

	// the mark was released, so the gateway's retry is processed
	svc.err = nil
	rec = post(handler, payload, signature)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec.Code)
	}
	if svc.calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", svc.calls)
	}

	store.mu.Lock()
	marks := len(store.values)
	store.mu.Unlock()
	if marks != 1 {
		t.Fatalf("expected exactly one mark after success, got %d", marks)
	}
}
