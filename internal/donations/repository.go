package donations

import (
	"context"
	"errors"
	"time"

	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	"github.com/pwvale/panel-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for donations and balances. Status changes go
// through SettlePending/CancelPending only, which are conditional updates: the
// WHERE clause re-checks the pending status so concurrent settlements collapse
// to exactly one winner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePending(ctx context.Context, donation *models.Donation) error
	FindByID(ctx context.Context, id uint64) (*models.Donation, error)
	SettlePending(ctx context.Context, id uint64, reference *string, settledAt time.Time) (bool, error)
	CancelPending(ctx context.Context, id uint64) (bool, error)
	CreditBalance(ctx context.Context, accountID uint64, amount int64) error
	GetBalance(ctx context.Context, accountID uint64) (int64, error)
	HistoryByAccount(ctx context.Context, accountID uint64, limit int, cursor *pagination.Cursor) ([]models.Donation, error)
	ExpireStalePending(ctx context.Context, olderThan time.Time, batchSize int) (int64, error)
}

// ErrNotFound is returned when a donation id does not exist.
var ErrNotFound = errors.New("donation not found")

type repository struct {
	db *gorm.DB
}

// NewRepository returns a donation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePending(ctx context.Context, donation *models.Donation) error {
	donation.Status = enums.DonationStatusPending
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.WithContext(ctx).First(&donation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &donation, nil
}

// SettlePending flips pending -> completed. The returned bool reports whether
// this call won the transition; false means the row was already terminal (or
// missing) and the caller must not credit anything. The gateway reference
// lands here and nowhere else; pending rows never carry one.
func (r *repository) SettlePending(ctx context.Context, id uint64, reference *string, settledAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":     enums.DonationStatusCompleted,
		"settled_at": settledAt,
	}
	if reference != nil {
		updates["external_reference"] = *reference
	}
	result := r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("id = ? AND status = ?", id, enums.DonationStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CancelPending flips pending -> cancelled under the same conditional rule.
func (r *repository) CancelPending(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("id = ? AND status = ?", id, enums.DonationStatusPending).
		Update("status", enums.DonationStatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CreditBalance applies an atomic relative increment. The upsert folds the
// missing-row case into the same statement, so concurrent credits to a fresh
// account still sum correctly.
func (r *repository) CreditBalance(ctx context.Context, accountID uint64, amount int64) error {
	balance := models.Balance{AccountID: accountID, Amount: amount, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"amount":     gorm.Expr("balances.amount + EXCLUDED.amount"),
				"updated_at": gorm.Expr("now()"),
			}),
		}).
		Create(&balance).Error
}

func (r *repository) GetBalance(ctx context.Context, accountID uint64) (int64, error) {
	var balance models.Balance
	err := r.db.WithContext(ctx).First(&balance, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Amount, nil
}

// HistoryByAccount lists an account's donations newest first. Donation ids are
// monotonic, so the cursor is a plain id bound.
func (r *repository) HistoryByAccount(ctx context.Context, accountID uint64, limit int, cursor *pagination.Cursor) ([]models.Donation, error) {
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("id < ?", cursor.ID)
	}

	var rows []models.Donation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExpireStalePending cancels pending donations created before the cutoff, at
// most batchSize per call. The status re-check keeps the sweep from racing a
// settlement that lands mid-batch.
func (r *repository) ExpireStalePending(ctx context.Context, olderThan time.Time, batchSize int) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE donations SET status = ?
		WHERE id IN (
			SELECT id FROM donations
			WHERE status = ? AND created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		) AND status = ?`,
		enums.DonationStatusCancelled,
		enums.DonationStatusPending, olderThan, batchSize,
		enums.DonationStatusPending,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
