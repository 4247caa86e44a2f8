package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pwvale/panel-backend/internal/accounts"
	pkgauth "github.com/pwvale/panel-backend/pkg/auth"
	"github.com/pwvale/panel-backend/pkg/config"
	"github.com/pwvale/panel-backend/pkg/db"
	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/security"
)

const (
	minNameLen     = 3
	maxNameLen     = 32
	minPasswordLen = 6
)

// Service authenticates players against the account table.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*SessionDTO, error)
	Login(ctx context.Context, input LoginInput) (*SessionDTO, error)
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is the login payload.
type LoginInput struct {
	Name     string
	Password string
}

// SessionDTO is the issued session.
type SessionDTO struct {
	Token     string            `json:"token"`
	AccountID uint64            `json:"account_id"`
	Name      string            `json:"name"`
	Role      enums.AccountRole `json:"role"`
}

// ServiceParams wires the auth service dependencies.
type ServiceParams struct {
	Accounts accounts.Repository
	JWT      config.JWTConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	accounts accounts.Repository
	jwt      config.JWTConfig
	password config.PasswordConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewService validates dependencies and builds the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Accounts == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if params.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		accounts: params.Accounts,
		jwt:      params.JWT,
		password: params.Password,
		logger:   params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*SessionDTO, error) {
	name := strings.TrimSpace(input.Name)
	if len(name) < minNameLen || len(name) > maxNameLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("account name must be %d-%d characters", minNameLen, maxNameLen))
	}
	if len(input.Password) < minPasswordLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	account := &models.Account{
		Name:         name,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		Role:         enums.AccountRolePlayer,
		Status:       enums.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "idx_accounts_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "account name already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating account")
	}

	s.logger.Info(s.logger.WithAccountID(ctx, fmt.Sprintf("%d", account.ID)), "account registered")
	return s.issueSession(account)
}

func (s *service) Login(ctx context.Context, input LoginInput) (*SessionDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and password are required")
	}

	account, err := s.accounts.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}
	if account.IsBanned() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is banned")
	}

	ctx = s.logger.WithAccountID(ctx, fmt.Sprintf("%d", account.ID))

	ok, err := s.verifyPassword(ctx, account, input.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID, s.now()); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("updating last login: %v", err))
	}

	s.logger.Info(ctx, "login succeeded")
	return s.issueSession(account)
}

// verifyPassword checks the stored hash and upgrades legacy MD5 digests to
// Argon2id on the first successful login.
func (s *service) verifyPassword(ctx context.Context, account *models.Account, password string) (bool, error) {
	if security.IsLegacyHash(account.PasswordHash) {
		if !security.VerifyLegacyPassword(password, account.PasswordHash) {
			return false, nil
		}
		upgraded, err := security.HashPassword(password, s.password)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upgrading legacy hash")
		}
		if err := s.accounts.UpdatePasswordHash(ctx, account.ID, upgraded); err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("persisting upgraded hash: %v", err))
		} else {
			s.logger.Info(ctx, "legacy password hash upgraded")
		}
		return true, nil
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	return ok, nil
}

func (s *service) issueSession(account *models.Account) (*SessionDTO, error) {
	token, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		AccountID: account.ID,
		Name:      account.Name,
		Role:      account.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	return &SessionDTO{
		Token:     token,
		AccountID: account.ID,
		Name:      account.Name,
		Role:      account.Role,
	}, nil
}
