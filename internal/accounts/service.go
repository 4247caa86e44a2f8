package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/pagination"
)

// Service exposes the admin account operations.
type Service interface {
	ListAccounts(ctx context.Context, input ListAccountsInput) (*AccountListResult, error)
	GetAccount(ctx context.Context, id uint64) (*AccountDTO, error)
	BanAccount(ctx context.Context, id uint64) (*AccountDTO, error)
	UnbanAccount(ctx context.Context, id uint64) (*AccountDTO, error)
}

// ListAccountsInput filters and paginates the admin listing.
type ListAccountsInput struct {
	Search  string
	Limit   int
	AfterID uint64
}

// AccountDTO is the admin-facing read model. Password hashes never leave the
// service layer.
type AccountDTO struct {
	ID          uint64              `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Role        enums.AccountRole   `json:"role"`
	Status      enums.AccountStatus `json:"status"`
	LastLoginAt *time.Time          `json:"last_login_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AccountListResult is one page of accounts.
type AccountListResult struct {
	Items   []AccountDTO `json:"items"`
	NextID  *uint64      `json:"next_id,omitempty"`
	HasMore bool         `json:"has_more"`
}

type service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService wires the account admin service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logger: logg}, nil
}

func (s *service) ListAccounts(ctx context.Context, input ListAccountsInput) (*AccountListResult, error) {
	limit := pagination.NormalizeLimit(input.Limit)
	rows, err := s.repo.List(ctx, input.Search, limit+1, input.AfterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing accounts")
	}

	result := &AccountListResult{Items: make([]AccountDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		result.HasMore = true
		lastID := rows[len(rows)-1].ID
		result.NextID = &lastID
	}
	for i := range rows {
		result.Items = append(result.Items, toAccountDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) GetAccount(ctx context.Context, id uint64) (*AccountDTO, error) {
	account, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toAccountDTO(account)
	return &dto, nil
}

// BanAccount locks the account out. Banning an already banned account is a
// no-op; admin accounts cannot be banned.
func (s *service) BanAccount(ctx context.Context, id uint64) (*AccountDTO, error) {
	account, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Role == enums.AccountRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin accounts cannot be banned")
	}
	if account.Status != enums.AccountStatusBanned {
		if err := s.repo.SetStatus(ctx, id, enums.AccountStatusBanned); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "banning account")
		}
		account.Status = enums.AccountStatusBanned
		s.logger.Info(s.logger.WithAccountID(ctx, fmt.Sprintf("%d", id)), "account banned")
	}
	dto := toAccountDTO(account)
	return &dto, nil
}

// UnbanAccount restores a banned account. Unbanning an active account is a
// no-op.
func (s *service) UnbanAccount(ctx context.Context, id uint64) (*AccountDTO, error) {
	account, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Status != enums.AccountStatusActive {
		if err := s.repo.SetStatus(ctx, id, enums.AccountStatusActive); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unbanning account")
		}
		account.Status = enums.AccountStatusActive
		s.logger.Info(s.logger.WithAccountID(ctx, fmt.Sprintf("%d", id)), "account unbanned")
	}
	dto := toAccountDTO(account)
	return &dto, nil
}

func (s *service) findAccount(ctx context.Context, id uint64) (*models.Account, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}
	return account, nil
}

func toAccountDTO(account *models.Account) AccountDTO {
	return AccountDTO{
		ID:          account.ID,
		Name:        account.Name,
		Email:       account.Email,
		Role:        account.Role,
		Status:      account.Status,
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt,
	}
}
