package gameserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pwvale/panel-backend/pkg/config"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
)

// BroadcastMessage is a world or channel announcement.
type BroadcastMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// SystemMail is an in-game mail with optional coin attachment.
type SystemMail struct {
	RoleID  uint64 `json:"role_id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Coins   int64  `json:"coins"`
	ItemID  int    `json:"item_id,omitempty"`
	ItemQty int    `json:"item_qty,omitempty"`
}

// Messenger delivers queued commands to the game world. The dispatch worker is
// the only caller; web handlers never talk to the game servers directly.
type Messenger interface {
	Broadcast(ctx context.Context, msg BroadcastMessage) error
	SendMail(ctx context.Context, mail SystemMail) error
}

// DeliveryMessenger speaks newline-delimited JSON to the delivery bridge
// sitting in front of gdeliveryd. Delivery failures surface as dependency
// errors so the dispatcher can retry.
type DeliveryMessenger struct {
	addr    string
	timeout time.Duration

	// dial is swapped in tests.
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

// NewDeliveryMessenger builds the bridge client.
func NewDeliveryMessenger(cfg config.GameServerConfig) (*DeliveryMessenger, error) {
	addr := strings.TrimSpace(cfg.DeliveryAddr)
	if addr == "" {
		return nil, fmt.Errorf("delivery address is required")
	}

	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &DeliveryMessenger{
		addr:    addr,
		timeout: timeout,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, "tcp", addr)
		},
	}, nil
}

type deliveryEnvelope struct {
	Op      string `json:"op"`
	Payload any    `json:"payload"`
}

// Broadcast sends a world announcement through the bridge.
func (m *DeliveryMessenger) Broadcast(ctx context.Context, msg BroadcastMessage) error {
	if strings.TrimSpace(msg.Text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "broadcast text is required")
	}
	return m.send(ctx, deliveryEnvelope{Op: "broadcast", Payload: msg})
}

// SendMail delivers a system mail through the bridge.
func (m *DeliveryMessenger) SendMail(ctx context.Context, mail SystemMail) error {
	if mail.RoleID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "mail role id is required")
	}
	if strings.TrimSpace(mail.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "mail title is required")
	}
	return m.send(ctx, deliveryEnvelope{Op: "system_mail", Payload: mail})
}

func (m *DeliveryMessenger) send(ctx context.Context, envelope deliveryEnvelope) error {
	sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dial(sendCtx, m.addr)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dialing delivery bridge")
	}
	defer conn.Close()

	if deadline, ok := sendCtx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	line, err := json.Marshal(envelope)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding delivery command")
	}
	line = append(line, '\n')

	if _, err := conn.Write(line); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing delivery command")
	}
	return nil
}
