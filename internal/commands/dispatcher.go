package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pwvale/panel-backend/internal/gameserver"
	"github.com/pwvale/panel-backend/pkg/config"
	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	"github.com/pwvale/panel-backend/pkg/logger"
	"go.uber.org/multierr"
)

// Dispatcher drains the pending command queue and hands each command to the
// messenger. Failed deliveries return to pending until MaxAttempts, then flip
// to failed permanently. Claims older than LeaseTimeout count as abandoned
// and get picked up again.
type Dispatcher struct {
	repo         Repository
	messenger    gameserver.Messenger
	logger       *logger.Logger
	batchSize    int
	poll         time.Duration
	maxAttempts  int
	leaseTimeout time.Duration
	now          func() time.Time
}

// NewDispatcher validates dependencies and builds the worker.
func NewDispatcher(repo Repository, messenger gameserver.Messenger, cfg config.DispatchConfig, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("command repository required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	leaseTimeout := cfg.LeaseTimeout
	if leaseTimeout <= 0 {
		leaseTimeout = 5 * time.Minute
	}

	return &Dispatcher{
		repo:         repo,
		messenger:    messenger,
		logger:       logg,
		batchSize:    batchSize,
		poll:         poll,
		maxAttempts:  maxAttempts,
		leaseTimeout: leaseTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DrainOnce(ctx); err != nil {
				d.logger.Error(ctx, "draining command queue", err)
			}
		}
	}
}

// DrainOnce claims one batch and dispatches it, returning how many commands
// were delivered. The claim flips the rows to sending, so a concurrent worker
// draining the same queue never sees them.
func (d *Dispatcher) DrainOnce(ctx context.Context) (int, error) {
	batch, err := d.repo.LeasePending(ctx, d.batchSize, d.now().Add(-d.leaseTimeout))
	if err != nil {
		return 0, fmt.Errorf("leasing pending commands: %w", err)
	}

	var sent int
	var errs error
	for i := range batch {
		if err := d.dispatch(ctx, &batch[i]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		sent++
	}
	return sent, errs
}

func (d *Dispatcher) dispatch(ctx context.Context, command *models.ServerCommand) error {
	ctx = d.logger.WithFields(ctx, map[string]any{
		"command_id":   command.ID,
		"command_type": command.Type,
	})

	deliverErr := d.deliver(ctx, command)
	if deliverErr == nil {
		if err := d.repo.MarkSent(ctx, command.ID, d.now()); err != nil {
			return fmt.Errorf("marking command %d sent: %w", command.ID, err)
		}
		d.logger.Info(ctx, "server command dispatched")
		return nil
	}

	terminal := command.Attempts+1 >= d.maxAttempts
	if err := d.repo.MarkFailed(ctx, command.ID, deliverErr.Error(), terminal); err != nil {
		return fmt.Errorf("marking command %d failed: %w", command.ID, err)
	}
	if terminal {
		d.logger.Error(ctx, "server command failed permanently", deliverErr)
	} else {
		d.logger.Warn(ctx, fmt.Sprintf("server command delivery failed, will retry: %v", deliverErr))
	}
	return fmt.Errorf("dispatching command %d: %w", command.ID, deliverErr)
}

func (d *Dispatcher) deliver(ctx context.Context, command *models.ServerCommand) error {
	switch command.Type {
	case enums.CommandTypeBroadcast:
		var msg gameserver.BroadcastMessage
		if err := json.Unmarshal(command.Payload, &msg); err != nil {
			return fmt.Errorf("decoding broadcast payload: %w", err)
		}
		return d.messenger.Broadcast(ctx, msg)
	case enums.CommandTypeSystemMail:
		var mail gameserver.SystemMail
		if err := json.Unmarshal(command.Payload, &mail); err != nil {
			return fmt.Errorf("decoding mail payload: %w", err)
		}
		return d.messenger.SendMail(ctx, mail)
	default:
		return fmt.Errorf("unknown command type %q", command.Type)
	}
}
