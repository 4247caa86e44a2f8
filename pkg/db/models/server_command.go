package models

import (
	"encoding/json"
	"time"

	"github.com/pwvale/panel-backend/pkg/enums"
)

// ServerCommand is a queued instruction for the game-server daemons
// (broadcasts, system mail). Admin endpoints enqueue rows; the dispatch worker
// claims pending rows into the sending state and hands them to the configured
// messenger. leased_at marks when the claim happened so a crashed worker's
// rows can be reclaimed.
type ServerCommand struct {
	ID           uint64              `gorm:"column:id;primaryKey;autoIncrement"`
	Type         enums.CommandType   `gorm:"column:type;type:server_command_type;not null"`
	Payload      json.RawMessage     `gorm:"column:payload;type:jsonb;not null"`
	Status       enums.CommandStatus `gorm:"column:status;type:server_command_status;not null;default:'pending'"`
	Attempts     int                 `gorm:"column:attempts;not null;default:0"`
	LastError    *string             `gorm:"column:last_error"`
	EnqueuedBy   uint64              `gorm:"column:enqueued_by;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	LeasedAt     *time.Time          `gorm:"column:leased_at"`
	DispatchedAt *time.Time          `gorm:"column:dispatched_at"`
}
