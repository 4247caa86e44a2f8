package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pwvale/panel-backend/internal/gameserver"
	"github.com/pwvale/panel-backend/pkg/config"
	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type fakeQueue struct {
	commands map[uint64]*models.ServerCommand
	nextID   uint64
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{commands: map[uint64]*models.ServerCommand{}, nextID: 1}
}

func (f *fakeQueue) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeQueue) Enqueue(ctx context.Context, command *models.ServerCommand) error {
	command.ID = f.nextID
	f.nextID++
	command.Status = enums.CommandStatusPending
	command.CreatedAt = time.Now().UTC()
	copied := *command
	f.commands[command.ID] = &copied
	return nil
}

func (f *fakeQueue) LeasePending(ctx context.Context, limit int, reclaimBefore time.Time) ([]models.ServerCommand, error) {
	var rows []models.ServerCommand
	for id := uint64(1); id < f.nextID; id++ {
		command, ok := f.commands[id]
		if !ok {
			continue
		}
		claimable := command.Status == enums.CommandStatusPending ||
			(command.Status == enums.CommandStatusSending &&
				command.LeasedAt != nil && command.LeasedAt.Before(reclaimBefore))
		if !claimable {
			continue
		}
		leasedAt := time.Now().UTC()
		command.Status = enums.CommandStatusSending
		command.LeasedAt = &leasedAt
		rows = append(rows, *command)
		if len(rows) == limit {
			break
		}
	}
	return rows, nil
}

func (f *fakeQueue) MarkSent(ctx context.Context, id uint64, at time.Time) error {
	command, ok := f.commands[id]
	if !ok || command.Status != enums.CommandStatusSending {
		return ErrNotFound
	}
	command.Status = enums.CommandStatusSent
	command.Attempts++
	command.DispatchedAt = &at
	command.LastError = nil
	command.LeasedAt = nil
	return nil
}

func (f *fakeQueue) MarkFailed(ctx context.Context, id uint64, cause string, terminal bool) error {
	command, ok := f.commands[id]
	if !ok || command.Status != enums.CommandStatusSending {
		return ErrNotFound
	}
	command.Attempts++
	command.LastError = &cause
	command.LeasedAt = nil
	if terminal {
		command.Status = enums.CommandStatusFailed
	} else {
		command.Status = enums.CommandStatusPending
	}
	return nil
}

func (f *fakeQueue) List(ctx context.Context, limit int, afterID uint64) ([]models.ServerCommand, error) {
	return nil, nil
}

type fakeMessenger struct {
	broadcasts []gameserver.BroadcastMessage
	mails      []gameserver.SystemMail
	fail       error
}

func (f *fakeMessenger) Broadcast(ctx context.Context, msg gameserver.BroadcastMessage) error {
	if f.fail != nil {
		return f.fail
	}
	f.broadcasts = append(f.broadcasts, msg)
	return nil
}

func (f *fakeMessenger) SendMail(ctx context.Context, mail gameserver.SystemMail) error {
	if f.fail != nil {
		return f.fail
	}
	f.mails = append(f.mails, mail)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func mustEnqueueBroadcast(t *testing.T, svc Service, text string) *CommandDTO {
	t.Helper()
	dto, err := svc.EnqueueBroadcast(context.Background(), 1, gameserver.BroadcastMessage{Text: text})
	if err != nil {
		t.Fatalf("EnqueueBroadcast error: %v", err)
	}
	return dto
}

func newDispatcher(t *testing.T, queue *fakeQueue, messenger gameserver.Messenger, maxAttempts int) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(queue, messenger, config.DispatchConfig{
		BatchSize:   10,
		MaxAttempts: maxAttempts,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewDispatcher error: %v", err)
	}
	return dispatcher
}

func TestDispatcher_DeliversBroadcastAndMail(t *testing.T) {
	queue := newFakeQueue()
	svc, _ := NewService(queue, testLogger())
	messenger := &fakeMessenger{}
	dispatcher := newDispatcher(t, queue, messenger, 3)

	mustEnqueueBroadcast(t, svc, "server restart in 10 minutes")
	if _, err := svc.EnqueueSystemMail(context.Background(), 1, gameserver.SystemMail{
		RoleID: 1024,
		Title:  "Compensation",
		Body:   "Sorry for the downtime",
		Coins:  500,
	}); err != nil {
		t.Fatalf("EnqueueSystemMail error: %v", err)
	}

	sent, err := dispatcher.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("DrainOnce error: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected 2 dispatched, got %d", sent)
	}
	if len(messenger.broadcasts) != 1 || messenger.broadcasts[0].Channel != "world" {
		t.Fatalf("unexpected broadcasts: %+v", messenger.broadcasts)
	}
	if len(messenger.mails) != 1 || messenger.mails[0].Coins != 500 {
		t.Fatalf("unexpected mails: %+v", messenger.mails)
	}

	for _, command := range queue.commands {
		if command.Status != enums.CommandStatusSent || command.DispatchedAt == nil {
			t.Fatalf("command not marked sent: %+v", command)
		}
	}
}

func TestDispatcher_RetriesUntilMaxAttempts(t *testing.T) {
	queue := newFakeQueue()
	svc, _ := NewService(queue, testLogger())
	messenger := &fakeMessenger{fail: errors.New("bridge unreachable")}
	dispatcher := newDispatcher(t, queue, messenger, 2)

	dto := mustEnqueueBroadcast(t, svc, "hello world")

	// first failure stays pending
	if _, err := dispatcher.DrainOnce(context.Background()); err == nil {
		t.Fatal("expected delivery error")
	}
	command := queue.commands[dto.ID]
	if command.Status != enums.CommandStatusPending || command.Attempts != 1 {
		t.Fatalf("expected pending retry, got %+v", command)
	}
	if command.LastError == nil {
		t.Fatal("expected last error to be recorded")
	}

	// second failure reaches max attempts and goes terminal
	if _, err := dispatcher.DrainOnce(context.Background()); err == nil {
		t.Fatal("expected delivery error")
	}
	if command.Status != enums.CommandStatusFailed || command.Attempts != 2 {
		t.Fatalf("expected terminal failure, got %+v", command)
	}

	// terminal commands are not leased again
	sent, err := dispatcher.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("DrainOnce error: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected empty queue, got %d", sent)
	}
}

func TestDispatcher_ClaimedCommandsInvisibleToSecondWorker(t *testing.T) {
	queue := newFakeQueue()
	svc, _ := NewService(queue, testLogger())

	dto := mustEnqueueBroadcast(t, svc, "maintenance at midnight")

	reclaimBefore := time.Now().UTC().Add(-5 * time.Minute)
	first, err := queue.LeasePending(context.Background(), 10, reclaimBefore)
	if err != nil {
		t.Fatalf("LeasePending error: %v", err)
	}
	if len(first) != 1 || first[0].Status != enums.CommandStatusSending {
		t.Fatalf("expected one claimed command, got %+v", first)
	}

	// a second worker polling the same queue gets nothing while the claim holds
	second, err := queue.LeasePending(context.Background(), 10, reclaimBefore)
	if err != nil {
		t.Fatalf("LeasePending error: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second worker claimed an already leased command: %+v", second)
	}

	// once the holder reports failure the command is claimable again
	if err := queue.MarkFailed(context.Background(), dto.ID, "bridge timeout", false); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	third, err := queue.LeasePending(context.Background(), 10, reclaimBefore)
	if err != nil {
		t.Fatalf("LeasePending error: %v", err)
	}
	if len(third) != 1 || third[0].ID != dto.ID {
		t.Fatalf("expected the failed command back, got %+v", third)
	}
}

func TestDispatcher_StaleClaimIsReclaimed(t *testing.T) {
	queue := newFakeQueue()
	svc, _ := NewService(queue, testLogger())
	messenger := &fakeMessenger{}
	dispatcher := newDispatcher(t, queue, messenger, 3)

	dto := mustEnqueueBroadcast(t, svc, "event starting soon")

	// simulate a worker that claimed the command and died mid-delivery
	stale := time.Now().UTC().Add(-time.Hour)
	command := queue.commands[dto.ID]
	command.Status = enums.CommandStatusSending
	command.LeasedAt = &stale

	sent, err := dispatcher.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("DrainOnce error: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected stale claim to be redelivered, got %d", sent)
	}
	if command.Status != enums.CommandStatusSent {
		t.Fatalf("expected command marked sent, got %+v", command)
	}
}

func TestService_EnqueueValidation(t *testing.T) {
	svc, _ := NewService(newFakeQueue(), testLogger())

	if _, err := svc.EnqueueBroadcast(context.Background(), 1, gameserver.BroadcastMessage{Text: "   "}); err == nil {
		t.Fatal("expected validation error for empty broadcast")
	}
	if _, err := svc.EnqueueBroadcast(context.Background(), 0, gameserver.BroadcastMessage{Text: "x"}); err == nil {
		t.Fatal("expected validation error for missing actor")
	}
	if _, err := svc.EnqueueSystemMail(context.Background(), 1, gameserver.SystemMail{Title: "no role"}); err == nil {
		t.Fatal("expected validation error for missing role id")
	}
	if _, err := svc.EnqueueSystemMail(context.Background(), 1, gameserver.SystemMail{RoleID: 1, Title: "x", Coins: -1}); err == nil {
		t.Fatal("expected validation error for negative coins")
	}
}

func TestService_EnqueuePayloadRoundTrips(t *testing.T) {
	queue := newFakeQueue()
	svc, _ := NewService(queue, testLogger())

	dto := mustEnqueueBroadcast(t, svc, "double xp weekend")

	var decoded gameserver.BroadcastMessage
	if err := json.Unmarshal(dto.Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Text != "double xp weekend" || decoded.Channel != "world" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}
