package models

import (
	"time"

	"github.com/pwvale/panel-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Donation is one purchase attempt. AmountCharged and CurrencyAwarded are
// snapshotted from the package at creation; the row is retained forever as the
// audit trail and only its status ever changes, via the conditional update in
// the donations repository.
type Donation struct {
	ID                uint64               `gorm:"column:id;primaryKey;autoIncrement"`
	AccountID         uint64               `gorm:"column:account_id;not null;index"`
	PackageID         uint64               `gorm:"column:package_id;not null"`
	AmountCharged     decimal.Decimal      `gorm:"column:amount_charged;type:numeric(10,2);not null"`
	CurrencyAwarded   int64                `gorm:"column:currency_awarded;not null"`
	Status            enums.DonationStatus `gorm:"column:status;type:donation_status;not null;default:'pending'"`
	ExternalReference *string              `gorm:"column:external_reference"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	SettledAt         *time.Time           `gorm:"column:settled_at"`
}

// Balance holds one account's cash total. It is only ever written through
// atomic increments, never absolute values.
type Balance struct {
	AccountID uint64    `gorm:"column:account_id;primaryKey"`
	Amount    int64     `gorm:"column:amount;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
