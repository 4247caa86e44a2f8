package models

import (
	"time"

	"github.com/pwvale/panel-backend/pkg/enums"
)

// Account is a game login. IDs are assigned by the auth database and referenced
// by characters, donations and balances.
type Account struct {
	ID           uint64              `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string              `gorm:"column:name;type:text;not null;uniqueIndex"`
	Email        string              `gorm:"column:email;type:text;not null"`
	PasswordHash string              `gorm:"column:password_hash;not null"`
	Role         enums.AccountRole   `gorm:"column:role;type:account_role;not null;default:'player'"`
	Status       enums.AccountStatus `gorm:"column:status;type:account_status;not null;default:'active'"`
	LastLoginAt  *time.Time          `gorm:"column:last_login_at"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsBanned reports whether the account is locked out.
func (a *Account) IsBanned() bool {
	return a != nil && a.Status == enums.AccountStatusBanned
}
