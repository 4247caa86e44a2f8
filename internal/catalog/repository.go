package catalog

import (
	"context"
	"errors"

	"github.com/pwvale/panel-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence operations for donation packages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pkg *models.DonationPackage) error
	Update(ctx context.Context, pkg *models.DonationPackage) error
	Delete(ctx context.Context, id uint64) error
	FindByID(ctx context.Context, id uint64) (*models.DonationPackage, error)
	List(ctx context.Context) ([]models.DonationPackage, error)
}

// ErrNotFound is returned when a package id does not exist.
var ErrNotFound = errors.New("donation package not found")

type repository struct {
	db *gorm.DB
}

// NewRepository returns a package repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pkg *models.DonationPackage) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *repository) Update(ctx context.Context, pkg *models.DonationPackage) error {
	result := r.db.WithContext(ctx).
		Model(&models.DonationPackage{}).
		Where("id = ?", pkg.ID).
		Updates(map[string]any{
			"name":         pkg.Name,
			"price":        pkg.Price,
			"base_amount":  pkg.BaseAmount,
			"bonus_amount": pkg.BonusAmount,
			"image_url":    pkg.ImageURL,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&models.DonationPackage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.DonationPackage, error) {
	var pkg models.DonationPackage
	if err := r.db.WithContext(ctx).First(&pkg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *repository) List(ctx context.Context) ([]models.DonationPackage, error) {
	var pkgs []models.DonationPackage
	if err := r.db.WithContext(ctx).
		Order("price ASC, id ASC").
		Find(&pkgs).Error; err != nil {
		return nil, err
	}
	return pkgs, nil
}
