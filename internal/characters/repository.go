package characters

import (
	"context"
	"errors"

	"github.com/pwvale/panel-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads and repositions characters in the game database. The panel
// never creates or deletes characters; the game servers own those lifecycles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByAccount(ctx context.Context, accountID uint64) ([]models.Character, error)
	FindByID(ctx context.Context, id uint64) (*models.Character, error)
	UpdatePosition(ctx context.Context, id uint64, x, y, z float64, worldTag int) error
	ListInventory(ctx context.Context, characterID uint64) ([]models.InventoryItem, error)
}

// ErrNotFound is returned when a character does not exist.
var ErrNotFound = errors.New("character not found")

type repository struct {
	db *gorm.DB
}

// NewRepository returns a character repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByAccount(ctx context.Context, accountID uint64) ([]models.Character, error) {
	var rows []models.Character
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Character, error) {
	var character models.Character
	if err := r.db.WithContext(ctx).First(&character, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &character, nil
}

func (r *repository) UpdatePosition(ctx context.Context, id uint64, x, y, z float64, worldTag int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Character{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pos_x":     x,
			"pos_y":     y,
			"pos_z":     z,
			"world_tag": worldTag,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListInventory(ctx context.Context, characterID uint64) ([]models.InventoryItem, error) {
	var rows []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("character_id = ?", characterID).
		Order("slot ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
