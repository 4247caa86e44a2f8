package commands

import (
	"context"
	"errors"
	"time"

	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository persists the server command queue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Enqueue(ctx context.Context, command *models.ServerCommand) error
	LeasePending(ctx context.Context, limit int, reclaimBefore time.Time) ([]models.ServerCommand, error)
	MarkSent(ctx context.Context, id uint64, at time.Time) error
	MarkFailed(ctx context.Context, id uint64, cause string, terminal bool) error
	List(ctx context.Context, limit int, afterID uint64) ([]models.ServerCommand, error)
}

// ErrNotFound is returned when a command does not exist.
var ErrNotFound = errors.New("server command not found")

type repository struct {
	db *gorm.DB
}

// NewRepository returns a command repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Enqueue(ctx context.Context, command *models.ServerCommand) error {
	command.Status = enums.CommandStatusPending
	return r.db.WithContext(ctx).Create(command).Error
}

// LeasePending claims a batch of commands for this dispatcher by flipping
// them to sending in a single statement. The status flip is what keeps other
// workers out; SKIP LOCKED only arbitrates concurrent claims of the same
// batch. Rows stuck in sending past reclaimBefore belong to a crashed worker
// and are claimed again.
func (r *repository) LeasePending(ctx context.Context, limit int, reclaimBefore time.Time) ([]models.ServerCommand, error) {
	var rows []models.ServerCommand
	err := r.db.WithContext(ctx).Raw(`
		UPDATE server_commands
		SET status = ?, leased_at = now()
		WHERE id IN (
			SELECT id FROM server_commands
			WHERE status = ?
			   OR (status = ? AND leased_at < ?)
			ORDER BY created_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		enums.CommandStatusSending,
		enums.CommandStatusPending,
		enums.CommandStatusSending, reclaimBefore,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSent resolves a claimed command. The status check means a reclaimed
// command that was already resolved elsewhere cannot be overwritten.
func (r *repository) MarkSent(ctx context.Context, id uint64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.ServerCommand{}).
		Where("id = ? AND status = ?", id, enums.CommandStatusSending).
		Updates(map[string]any{
			"status":        enums.CommandStatusSent,
			"dispatched_at": at,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    nil,
			"leased_at":     nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records the delivery error. Non-terminal failures go back to
// pending so the next poll retries them.
func (r *repository) MarkFailed(ctx context.Context, id uint64, cause string, terminal bool) error {
	status := enums.CommandStatusPending
	if terminal {
		status = enums.CommandStatusFailed
	}
	result := r.db.WithContext(ctx).
		Model(&models.ServerCommand{}).
		Where("id = ? AND status = ?", id, enums.CommandStatusSending).
		Updates(map[string]any{
			"status":     status,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
			"leased_at":  nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, limit int, afterID uint64) ([]models.ServerCommand, error) {
	query := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if afterID > 0 {
		query = query.Where("id < ?", afterID)
	}

	var rows []models.ServerCommand
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
