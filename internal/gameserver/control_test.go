package gameserver

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/pwvale/panel-backend/pkg/config"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/rs/zerolog"
)

func testControl(t *testing.T, run func(ctx context.Context, name string, args ...string) ([]byte, error)) *ScriptControl {
	t.Helper()
	control, err := NewScriptControl(config.GameServerConfig{
		StartScript:   "/srv/pw/start.sh",
		StopScript:    "/srv/pw/stop.sh",
		ScriptTimeout: 2 * time.Second,
		Daemons:       []string{"gauthd", "gs"},
	}, logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}))
	if err != nil {
		t.Fatalf("NewScriptControl error: %v", err)
	}
	control.runCommand = run
	return control
}

func TestScriptControl_StatusReportsAbsentDaemons(t *testing.T) {
	control := testControl(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "pgrep" {
			t.Fatalf("unexpected command %s", name)
		}
		if args[len(args)-1] == "gauthd" {
			return []byte("1201\n1305\n"), nil
		}
		// pgrep exits non-zero when nothing matches
		return nil, errors.New("exit status 1")
	})

	statuses, err := control.Status(context.Background())
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Running || len(statuses[0].PIDs) != 2 {
		t.Fatalf("gauthd should be running: %+v", statuses[0])
	}
	if statuses[1].Running {
		t.Fatalf("gs should not be running: %+v", statuses[1])
	}
}

func TestScriptControl_StartFailureSurfacesOutput(t *testing.T) {
	control := testControl(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("disk full\n"), errors.New("exit status 1")
	})

	err := control.Start(context.Background())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	details, ok := typed.Details().(string)
	if !ok || !strings.Contains(details, "disk full") {
		t.Fatalf("expected script output in details, got %v", typed.Details())
	}
}

func TestScriptControl_StopRunsConfiguredScript(t *testing.T) {
	var ran string
	control := testControl(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		ran = name
		return nil, nil
	})

	if err := control.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if ran != "/srv/pw/stop.sh" {
		t.Fatalf("unexpected script %q", ran)
	}
}

func TestDeliveryMessenger_BroadcastWritesEnvelope(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	messenger, err := NewDeliveryMessenger(config.GameServerConfig{
		DeliveryAddr:   "127.0.0.1:29400",
		CommandTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewDeliveryMessenger error: %v", err)
	}
	messenger.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		return client, nil
	}

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 1024)
		n, _ := server.Read(buf)
		done <- string(buf[:n])
	}()

	err = messenger.Broadcast(context.Background(), BroadcastMessage{Channel: "world", Text: "maintenance at 03:00"})
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}

	line := <-done
	if !strings.Contains(line, `"op":"broadcast"`) || !strings.Contains(line, "maintenance at 03:00") {
		t.Fatalf("unexpected wire payload: %s", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatal("payload must be newline terminated")
	}
}

func TestDeliveryMessenger_ValidatesInput(t *testing.T) {
	messenger, err := NewDeliveryMessenger(config.GameServerConfig{DeliveryAddr: "127.0.0.1:29400"})
	if err != nil {
		t.Fatalf("NewDeliveryMessenger error: %v", err)
	}

	err = messenger.Broadcast(context.Background(), BroadcastMessage{Text: "   "})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = messenger.SendMail(context.Background(), SystemMail{Title: "hi"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeliveryMessenger_DialFailureIsDependencyError(t *testing.T) {
	messenger, err := NewDeliveryMessenger(config.GameServerConfig{
		DeliveryAddr:   "127.0.0.1:29400",
		CommandTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewDeliveryMessenger error: %v", err)
	}
	messenger.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	err = messenger.SendMail(context.Background(), SystemMail{RoleID: 1, Title: "hi", Body: "x"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
