package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository manages persistence for game accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uint64) (*models.Account, error)
	FindByName(ctx context.Context, name string) (*models.Account, error)
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
	UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error
	SetStatus(ctx context.Context, id uint64, status enums.AccountStatus) error
	List(ctx context.Context, search string, limit int, afterID uint64) ([]models.Account, error)
}

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("account not found")

type repository struct {
	db *gorm.DB
}

// NewRepository returns an account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

func (r *repository) SetStatus(ctx context.Context, id uint64, status enums.AccountStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, search string, limit int, afterID uint64) ([]models.Account, error) {
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}
	if trimmed := strings.TrimSpace(search); trimmed != "" {
		query = query.Where("name ILIKE ?", "%"+trimmed+"%")
	}

	var rows []models.Account
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
