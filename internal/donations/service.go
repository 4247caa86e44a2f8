package donations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pwvale/panel-backend/internal/catalog"
	"github.com/pwvale/panel-backend/internal/gateway"
	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/metrics"
	"github.com/pwvale/panel-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service drives the donation lifecycle: purchase initiation, webhook
// settlement, cancellation and the player-facing reads.
type Service interface {
	InitiatePurchase(ctx context.Context, input InitiatePurchaseInput) (*PurchaseDTO, error)
	HandleSettlement(ctx context.Context, input SettlementInput) (*SettlementResult, error)
	HandleCancellation(ctx context.Context, donationID uint64) error
	Balance(ctx context.Context, accountID uint64) (int64, error)
	History(ctx context.Context, accountID uint64, params pagination.Params) (*HistoryResult, error)
}

// TxRunner executes a function inside one storage transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InitiatePurchaseInput identifies the buyer and the catalog entry.
type InitiatePurchaseInput struct {
	AccountID   uint64
	AccountName string
	PackageID   uint64
}

// PurchaseDTO is returned to the client after a purchase is initiated.
type PurchaseDTO struct {
	DonationID      uint64          `json:"donation_id"`
	PaymentURL      string          `json:"payment_url"`
	Reference       string          `json:"reference"`
	AmountCharged   decimal.Decimal `json:"amount_charged"`
	CurrencyAwarded int64           `json:"currency_awarded"`
}

// SettlementInput is the verified webhook payload for a paid session.
type SettlementInput struct {
	DonationID        uint64
	ExternalReference string
}

// SettlementResult reports what the settlement call did.
type SettlementResult struct {
	AlreadySettled  bool
	CurrencyAwarded int64
	AccountID       uint64
}

// DonationDTO is one history entry.
type DonationDTO struct {
	ID                uint64               `json:"id"`
	PackageID         uint64               `json:"package_id"`
	AmountCharged     decimal.Decimal      `json:"amount_charged"`
	CurrencyAwarded   int64                `json:"currency_awarded"`
	Status            enums.DonationStatus `json:"status"`
	ExternalReference *string              `json:"external_reference,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	SettledAt         *time.Time           `json:"settled_at,omitempty"`
}

// HistoryResult is a cursor page of donations.
type HistoryResult struct {
	Items      []DonationDTO `json:"items"`
	NextCursor *string       `json:"next_cursor,omitempty"`
}

// ServiceParams wires the donation service dependencies.
type ServiceParams struct {
	Repo     Repository
	Packages catalog.Repository
	Gateway  gateway.Client
	Tx       TxRunner
	Logger   *logger.Logger
	Metrics  *metrics.DonationMetrics
}

type service struct {
	repo     Repository
	packages catalog.Repository
	gateway  gateway.Client
	tx       TxRunner
	logger   *logger.Logger
	metrics  *metrics.DonationMetrics
	now      func() time.Time
}

// NewService validates dependencies and builds the donation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("donation repository required")
	}
	if params.Packages == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		packages: params.Packages,
		gateway:  params.Gateway,
		tx:       params.Tx,
		logger:   params.Logger,
		metrics:  params.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// InitiatePurchase snapshots the package onto a pending donation and opens a
// checkout session. A gateway failure leaves the pending row in place; the
// expiry sweep reclaims it if the player never retries.
func (s *service) InitiatePurchase(ctx context.Context, input InitiatePurchaseInput) (*PurchaseDTO, error) {
	if input.AccountID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.PackageID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}

	pkg, err := s.packages.FindByID(ctx, input.PackageID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donation package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading donation package")
	}

	donation := &models.Donation{
		AccountID:       input.AccountID,
		PackageID:       pkg.ID,
		AmountCharged:   pkg.Price,
		CurrencyAwarded: pkg.TotalAmount(),
	}
	if err := s.repo.CreatePending(ctx, donation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating pending donation")
	}

	ctx = s.logger.WithDonationID(ctx, donation.ID)

	session, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		DonationID:  donation.ID,
		AccountName: input.AccountName,
		PackageName: pkg.Name,
		Amount:      pkg.Price,
	})
	if err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("gateway session failed, purchase left pending for sweep: %v", err))
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening payment session")
	}

	s.metrics.IncInitiated()
	s.logger.Info(ctx, "donation purchase initiated")

	return &PurchaseDTO{
		DonationID:      donation.ID,
		PaymentURL:      session.PaymentURL,
		Reference:       session.Reference,
		AmountCharged:   donation.AmountCharged,
		CurrencyAwarded: donation.CurrencyAwarded,
	}, nil
}

// HandleSettlement settles the donation and credits the snapshotted award in
// one transaction. Losing the status race is not an error: a duplicate
// delivery reports AlreadySettled and credits nothing.
func (s *service) HandleSettlement(ctx context.Context, input SettlementInput) (*SettlementResult, error) {
	if input.DonationID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id is required")
	}

	ctx = s.logger.WithDonationID(ctx, input.DonationID)

	var result SettlementResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var reference *string
		if input.ExternalReference != "" {
			reference = &input.ExternalReference
		}

		won, err := repo.SettlePending(ctx, input.DonationID, reference, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling donation")
		}

		if !won {
			donation, err := repo.FindByID(ctx, input.DonationID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-reading donation")
			}
			switch donation.Status {
			case enums.DonationStatusCompleted:
				result = SettlementResult{
					AlreadySettled:  true,
					CurrencyAwarded: donation.CurrencyAwarded,
					AccountID:       donation.AccountID,
				}
				return nil
			case enums.DonationStatusCancelled:
				return pkgerrors.New(pkgerrors.CodeStateConflict, "donation already cancelled").
					WithDetails(map[string]any{"donation_id": donation.ID})
			default:
				return pkgerrors.New(pkgerrors.CodeInternal,
					fmt.Sprintf("settle affected no rows for pending donation %d", donation.ID))
			}
		}

		donation, err := repo.FindByID(ctx, input.DonationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settled donation")
		}
		if err := repo.CreditBalance(ctx, donation.AccountID, donation.CurrencyAwarded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "crediting balance")
		}
		result = SettlementResult{
			CurrencyAwarded: donation.CurrencyAwarded,
			AccountID:       donation.AccountID,
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			switch typed.Code() {
			case pkgerrors.CodeStateConflict:
				s.metrics.IncSettlement(metrics.SettlementCancelled)
			case pkgerrors.CodeNotFound:
				s.metrics.IncSettlement(metrics.SettlementRejected)
			}
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settlement transaction")
	}

	if result.AlreadySettled {
		s.metrics.IncSettlement(metrics.SettlementDuplicate)
		s.logger.Info(ctx, "duplicate settlement ignored")
	} else {
		s.metrics.IncSettlement(metrics.SettlementApplied)
		s.metrics.AddCoinsCredited(result.CurrencyAwarded)
		s.logger.Info(ctx, "donation settled and balance credited")
	}
	return &result, nil
}

// HandleCancellation flips a pending donation to cancelled. Cancelling twice
// is a no-op; cancelling a completed donation is a state conflict.
func (s *service) HandleCancellation(ctx context.Context, donationID uint64) error {
	if donationID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "donation id is required")
	}

	ctx = s.logger.WithDonationID(ctx, donationID)

	won, err := s.repo.CancelPending(ctx, donationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling donation")
	}
	if won {
		s.logger.Info(ctx, "donation cancelled")
		return nil
	}

	donation, err := s.repo.FindByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-reading donation")
	}
	if donation.Status == enums.DonationStatusCancelled {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "donation already completed").
		WithDetails(map[string]any{"donation_id": donationID})
}

func (s *service) Balance(ctx context.Context, accountID uint64) (int64, error) {
	if accountID == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	amount, err := s.repo.GetBalance(ctx, accountID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading balance")
	}
	return amount, nil
}

func (s *service) History(ctx context.Context, accountID uint64, params pagination.Params) (*HistoryResult, error) {
	if accountID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.HistoryByAccount(ctx, accountID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading donation history")
	}

	result := &HistoryResult{Items: make([]DonationDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		next := pagination.EncodeCursor(pagination.Cursor{ID: rows[len(rows)-1].ID})
		result.NextCursor = &next
	}
	for i := range rows {
		result.Items = append(result.Items, toDonationDTO(&rows[i]))
	}
	return result, nil
}

func toDonationDTO(d *models.Donation) DonationDTO {
	return DonationDTO{
		ID:                d.ID,
		PackageID:         d.PackageID,
		AmountCharged:     d.AmountCharged,
		CurrencyAwarded:   d.CurrencyAwarded,
		Status:            d.Status,
		ExternalReference: d.ExternalReference,
		CreatedAt:         d.CreatedAt,
		SettledAt:         d.SettledAt,
	}
}
