package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pwvale/panel-backend/internal/gameserver"
	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/pagination"
)

const maxBroadcastLen = 512

// Service enqueues server commands for the dispatch worker. Enqueueing is the
// admin-facing write; delivery happens asynchronously.
type Service interface {
	EnqueueBroadcast(ctx context.Context, actorID uint64, msg gameserver.BroadcastMessage) (*CommandDTO, error)
	EnqueueSystemMail(ctx context.Context, actorID uint64, mail gameserver.SystemMail) (*CommandDTO, error)
	ListCommands(ctx context.Context, params pagination.Params) ([]CommandDTO, error)
}

// CommandDTO is the admin read model for a queued command.
type CommandDTO struct {
	ID           uint64              `json:"id"`
	Type         enums.CommandType   `json:"type"`
	Payload      json.RawMessage     `json:"payload"`
	Status       enums.CommandStatus `json:"status"`
	Attempts     int                 `json:"attempts"`
	LastError    *string             `json:"last_error,omitempty"`
	EnqueuedBy   uint64              `json:"enqueued_by"`
	CreatedAt    time.Time           `json:"created_at"`
	DispatchedAt *time.Time          `json:"dispatched_at,omitempty"`
}

type service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService wires the command queue service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("command repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logger: logg}, nil
}

func (s *service) EnqueueBroadcast(ctx context.Context, actorID uint64, msg gameserver.BroadcastMessage) (*CommandDTO, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcast text is required")
	}
	if len(text) > maxBroadcastLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("broadcast text exceeds %d characters", maxBroadcastLen))
	}
	msg.Text = text
	if msg.Channel == "" {
		msg.Channel = "world"
	}
	return s.enqueue(ctx, actorID, enums.CommandTypeBroadcast, msg)
}

func (s *service) EnqueueSystemMail(ctx context.Context, actorID uint64, mail gameserver.SystemMail) (*CommandDTO, error) {
	if mail.RoleID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mail role id is required")
	}
	if strings.TrimSpace(mail.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mail title is required")
	}
	if mail.Coins < 0 || mail.ItemQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mail attachments cannot be negative")
	}
	return s.enqueue(ctx, actorID, enums.CommandTypeSystemMail, mail)
}

func (s *service) enqueue(ctx context.Context, actorID uint64, cmdType enums.CommandType, payload any) (*CommandDTO, error) {
	if actorID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding command payload")
	}

	command := &models.ServerCommand{
		Type:       cmdType,
		Payload:    raw,
		EnqueuedBy: actorID,
	}
	if err := s.repo.Enqueue(ctx, command); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "enqueueing server command")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{"command_id": command.ID, "command_type": cmdType})
	s.logger.Info(ctx, "server command enqueued")

	dto := toCommandDTO(command)
	return &dto, nil
}

func (s *service) ListCommands(ctx context.Context, params pagination.Params) ([]CommandDTO, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var afterID uint64
	if cursor != nil {
		afterID = cursor.ID
	}

	rows, err := s.repo.List(ctx, pagination.NormalizeLimit(params.Limit), afterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing server commands")
	}

	dtos := make([]CommandDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, toCommandDTO(&rows[i]))
	}
	return dtos, nil
}

func toCommandDTO(command *models.ServerCommand) CommandDTO {
	return CommandDTO{
		ID:           command.ID,
		Type:         command.Type,
		Payload:      command.Payload,
		Status:       command.Status,
		Attempts:     command.Attempts,
		LastError:    command.LastError,
		EnqueuedBy:   command.EnqueuedBy,
		CreatedAt:    command.CreatedAt,
		DispatchedAt: command.DispatchedAt,
	}
}
