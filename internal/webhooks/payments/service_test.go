package paymentwebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pwvale/panel-backend/internal/donations"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/pagination"
	"github.com/rs/zerolog"
)

type fakeDonations struct {
	settlements   []donations.SettlementInput
	cancellations []uint64
	settleResult  *donations.SettlementResult
	settleErr     error
	cancelErr     error
}

func (f *fakeDonations) InitiatePurchase(ctx context.Context, input donations.InitiatePurchaseInput) (*donations.PurchaseDTO, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDonations) HandleSettlement(ctx context.Context, input donations.SettlementInput) (*donations.SettlementResult, error) {
	f.settlements = append(f.settlements, input)
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	if f.settleResult != nil {
		return f.settleResult, nil
	}
	return &donations.SettlementResult{CurrencyAwarded: 1100, AccountID: 7}, nil
}

func (f *fakeDonations) HandleCancellation(ctx context.Context, donationID uint64) error {
	f.cancellations = append(f.cancellations, donationID)
	return f.cancelErr
}

func (f *fakeDonations) Balance(ctx context.Context, accountID uint64) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeDonations) History(ctx context.Context, accountID uint64, params pagination.Params) (*donations.HistoryResult, error) {
	return nil, errors.New("not implemented")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func hasCode(err error, code pkgerrors.Code) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == code
}

func newTestService(t *testing.T, fake *fakeDonations) *Service {
	t.Helper()
	svc, err := NewService(fake, testLogger())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func TestParseEvent(t *testing.T) {
	event, err := ParseEvent([]byte(`{"event_id":"evt_1","type":"payment.completed","donation_id":42,"reference":"gw-9"}`))
	if err != nil {
		t.Fatalf("ParseEvent error: %v", err)
	}
	if event.DonationID != 42 || event.Reference != "gw-9" {
		t.Fatalf("unexpected event: %+v", event)
	}

	invalid := [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"payment.completed","donation_id":1}`),
		[]byte(`{"event_id":"evt","donation_id":1}`),
		[]byte(`{"event_id":"evt","type":"payment.completed"}`),
	}
	for _, payload := range invalid {
		if _, err := ParseEvent(payload); !hasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %s, got %v", payload, err)
		}
	}
}

func TestHandleEvent_CompletedSettles(t *testing.T) {
	fake := &fakeDonations{}
	svc := newTestService(t, fake)

	err := svc.HandleEvent(context.Background(), &Event{
		ID:         "evt_1",
		Type:       EventPaymentCompleted,
		DonationID: 42,
		Reference:  "gw-9",
	})
	if err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}
	if len(fake.settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(fake.settlements))
	}
	if fake.settlements[0].DonationID != 42 || fake.settlements[0].ExternalReference != "gw-9" {
		t.Fatalf("unexpected settlement input: %+v", fake.settlements[0])
	}
}

func TestHandleEvent_CancelledCancels(t *testing.T) {
	fake := &fakeDonations{}
	svc := newTestService(t, fake)

	err := svc.HandleEvent(context.Background(), &Event{
		ID:         "evt_2",
		Type:       EventPaymentCancelled,
		DonationID: 42,
	})
	if err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}
	if len(fake.cancellations) != 1 || fake.cancellations[0] != 42 {
		t.Fatalf("unexpected cancellations: %v", fake.cancellations)
	}
}

func TestHandleEvent_UnknownTypeAcknowledged(t *testing.T) {
	fake := &fakeDonations{}
	svc := newTestService(t, fake)

	err := svc.HandleEvent(context.Background(), &Event{
		ID:         "evt_3",
		Type:       "payment.refunded",
		DonationID: 42,
	})
	if err != nil {
		t.Fatalf("expected unknown types to be acknowledged, got %v", err)
	}
	if len(fake.settlements) != 0 || len(fake.cancellations) != 0 {
		t.Fatal("unknown event type must not reach the donation workflow")
	}
}

func TestHandleEvent_SettlementErrorPropagates(t *testing.T) {
	fake := &fakeDonations{settleErr: pkgerrors.New(pkgerrors.CodeStateConflict, "donation already cancelled")}
	svc := newTestService(t, fake)

	err := svc.HandleEvent(context.Background(), &Event{
		ID:         "evt_4",
		Type:       EventPaymentCompleted,
		DonationID: 42,
	})
	if !hasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

type fakeIdemStore struct {
	values map[string]string
	err    error
}

func (f *fakeIdemStore) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = "1"
	return true, nil
}

func (f *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return "pwp:idem:" + scope + ":" + id
}

func (f *fakeIdemStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestIdempotencyGuard(t *testing.T) {
	store := &fakeIdemStore{values: map[string]string{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "payments")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard error: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery should not be marked seen, seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || !seen {
		t.Fatalf("second delivery should be seen, seen=%v err=%v", seen, err)
	}

	// releasing the mark lets the gateway retry after a handler failure
	if err := guard.Delete(context.Background(), "evt_1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || seen {
		t.Fatalf("retried delivery should not be seen, seen=%v err=%v", seen, err)
	}

	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty event id")
	}
}
