package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationPackage is an admin-managed catalog entry for a purchasable cash
// bundle. Donations snapshot its price and amounts at purchase time, so edits
// and deletes never rewrite history.
type DonationPackage struct {
	ID          uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string          `gorm:"column:name;type:text;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	BaseAmount  int64           `gorm:"column:base_amount;not null"`
	BonusAmount int64           `gorm:"column:bonus_amount;not null;default:0"`
	ImageURL    *string         `gorm:"column:image_url"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalAmount is the cash award a purchase of this package yields.
func (p *DonationPackage) TotalAmount() int64 {
	if p == nil {
		return 0
	}
	return p.BaseAmount + p.BonusAmount
}
