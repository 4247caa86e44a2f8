package models

import "time"

// Character mirrors the game database's role records. The panel reads and
// repositions characters but never creates them.
type Character struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	AccountID  uint64    `gorm:"column:account_id;not null;index"`
	RoleID     uint64    `gorm:"column:role_id;not null;uniqueIndex"`
	Name       string    `gorm:"column:name;type:text;not null"`
	Class      int       `gorm:"column:class;not null"`
	Level      int       `gorm:"column:level;not null"`
	Gender     int       `gorm:"column:gender;not null"`
	Reputation int       `gorm:"column:reputation;not null;default:0"`
	PosX       float64   `gorm:"column:pos_x;not null;default:0"`
	PosY       float64   `gorm:"column:pos_y;not null;default:0"`
	PosZ       float64   `gorm:"column:pos_z;not null;default:0"`
	WorldTag   int       `gorm:"column:world_tag;not null;default:1"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// InventoryItem is one stack in a character's bag.
type InventoryItem struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	CharacterID uint64 `gorm:"column:character_id;not null;index"`
	ItemID      int    `gorm:"column:item_id;not null"`
	Name        string `gorm:"column:name;type:text;not null"`
	Count       int    `gorm:"column:count;not null;default:1"`
	Slot        int    `gorm:"column:slot;not null"`
}
