package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pwvale/panel-backend/pkg/db/models"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Service exposes donation package catalog operations. Reads serve the public
// storefront; writes are admin-only and guarded at the routing layer.
type Service interface {
	ListPackages(ctx context.Context) ([]PackageDTO, error)
	GetPackage(ctx context.Context, id uint64) (*PackageDTO, error)
	CreatePackage(ctx context.Context, input CreatePackageInput) (*PackageDTO, error)
	UpdatePackage(ctx context.Context, id uint64, input UpdatePackageInput) (*PackageDTO, error)
	DeletePackage(ctx context.Context, id uint64) error
}

// CreatePackageInput holds the validated payload to create a package.
type CreatePackageInput struct {
	Name        string
	Price       decimal.Decimal
	BaseAmount  int64
	BonusAmount int64
	ImageURL    *string
}

// UpdatePackageInput holds optional mutation values for a package.
type UpdatePackageInput struct {
	Name        *string
	Price       *decimal.Decimal
	BaseAmount  *int64
	BonusAmount *int64
	ImageURL    *string
}

// PackageDTO is the read model returned to clients.
type PackageDTO struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	BaseAmount  int64           `json:"base_amount"`
	BonusAmount int64           `json:"bonus_amount"`
	TotalAmount int64           `json:"total_amount"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListPackages(ctx context.Context) ([]PackageDTO, error) {
	pkgs, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing donation packages")
	}
	dtos := make([]PackageDTO, 0, len(pkgs))
	for i := range pkgs {
		dtos = append(dtos, toDTO(&pkgs[i]))
	}
	return dtos, nil
}

func (s *service) GetPackage(ctx context.Context, id uint64) (*PackageDTO, error) {
	pkg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donation package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading donation package")
	}
	dto := toDTO(pkg)
	return &dto, nil
}

func (s *service) CreatePackage(ctx context.Context, input CreatePackageInput) (*PackageDTO, error) {
	if err := validatePackageFields(input.Name, input.Price, input.BaseAmount, input.BonusAmount); err != nil {
		return nil, err
	}

	pkg := &models.DonationPackage{
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		BaseAmount:  input.BaseAmount,
		BonusAmount: input.BonusAmount,
		ImageURL:    input.ImageURL,
	}
	if err := s.repo.Create(ctx, pkg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating donation package")
	}
	dto := toDTO(pkg)
	return &dto, nil
}

func (s *service) UpdatePackage(ctx context.Context, id uint64, input UpdatePackageInput) (*PackageDTO, error) {
	pkg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donation package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading donation package")
	}

	if input.Name != nil {
		pkg.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		pkg.Price = *input.Price
	}
	if input.BaseAmount != nil {
		pkg.BaseAmount = *input.BaseAmount
	}
	if input.BonusAmount != nil {
		pkg.BonusAmount = *input.BonusAmount
	}
	if input.ImageURL != nil {
		pkg.ImageURL = input.ImageURL
	}

	if err := validatePackageFields(pkg.Name, pkg.Price, pkg.BaseAmount, pkg.BonusAmount); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, pkg); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donation package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating donation package")
	}
	dto := toDTO(pkg)
	return &dto, nil
}

// DeletePackage removes the catalog row. Donations keep their snapshotted
// price and award, so history stays intact after a delete.
func (s *service) DeletePackage(ctx context.Context, id uint64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "donation package not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting donation package")
	}
	return nil
}

func validatePackageFields(name string, price decimal.Decimal, base, bonus int64) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "package name is required")
	}
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "package price must be positive")
	}
	if base <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "base amount must be positive")
	}
	if bonus < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "bonus amount cannot be negative")
	}
	return nil
}

func toDTO(pkg *models.DonationPackage) PackageDTO {
	return PackageDTO{
		ID:          pkg.ID,
		Name:        pkg.Name,
		Price:       pkg.Price,
		BaseAmount:  pkg.BaseAmount,
		BonusAmount: pkg.BonusAmount,
		TotalAmount: pkg.TotalAmount(),
		ImageURL:    pkg.ImageURL,
	}
}
