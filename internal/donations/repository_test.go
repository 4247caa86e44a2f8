package donations

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pwvale/panel-backend/pkg/db/models"
	"github.com/pwvale/panel-backend/pkg/enums"
	"github.com/pwvale/panel-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("PWPANEL_DB_DSN")
	if dsn == "" {
		t.Skip("PWPANEL_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func mustCreateTestAccount(t *testing.T, tx *gorm.DB) *models.Account {
	t.Helper()
	account := &models.Account{
		Name:         fmt.Sprintf("pwp_test_%s", uuid.NewString()[:8]),
		Email:        fmt.Sprintf("pwp_test_%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "hash",
		Role:         enums.AccountRolePlayer,
		Status:       enums.AccountStatusActive,
	}
	if err := tx.Create(account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func mustCreateTestPackage(t *testing.T, tx *gorm.DB) *models.DonationPackage {
	t.Helper()
	pkg := &models.DonationPackage{
		Name:        "Repo Test Chest",
		Price:       decimal.RequireFromString("10.00"),
		BaseAmount:  1000,
		BonusAmount: 100,
	}
	if err := tx.Create(pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}
	return pkg
}

func mustCreatePendingDonation(t *testing.T, repo Repository, account *models.Account, pkg *models.DonationPackage) *models.Donation {
	t.Helper()
	donation := &models.Donation{
		AccountID:       account.ID,
		PackageID:       pkg.ID,
		AmountCharged:   pkg.Price,
		CurrencyAwarded: pkg.TotalAmount(),
	}
	require.NoError(t, repo.CreatePending(context.Background(), donation))
	return donation
}

func cursorAt(id uint64) *pagination.Cursor {
	return &pagination.Cursor{ID: id}
}

func TestRepository_SettlePendingWinsOnce(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	defer tx.Rollback()

	repo := NewRepository(tx)
	account := mustCreateTestAccount(t, tx)
	pkg := mustCreateTestPackage(t, tx)
	donation := mustCreatePendingDonation(t, repo, account, pkg)

	ref := "gw-" + uuid.NewString()
	won, err := repo.SettlePending(context.Background(), donation.ID, &ref, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, won)

	// second attempt loses the status check
	won, err = repo.SettlePending(context.Background(), donation.ID, &ref, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, won)

	stored, err := repo.FindByID(context.Background(), donation.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DonationStatusCompleted, stored.Status)
	require.NotNil(t, stored.SettledAt)
	require.NotNil(t, stored.ExternalReference)
	require.Equal(t, ref, *stored.ExternalReference)
}

func TestRepository_CancelThenSettleRefuses(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	defer tx.Rollback()

	repo := NewRepository(tx)
	account := mustCreateTestAccount(t, tx)
	pkg := mustCreateTestPackage(t, tx)
	donation := mustCreatePendingDonation(t, repo, account, pkg)

	won, err := repo.CancelPending(context.Background(), donation.ID)
	require.NoError(t, err)
	require.True(t, won)

	won, err = repo.SettlePending(context.Background(), donation.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, won)

	stored, err := repo.FindByID(context.Background(), donation.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DonationStatusCancelled, stored.Status)
}

func TestRepository_CreditBalanceUpsertsAndSums(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	defer tx.Rollback()

	repo := NewRepository(tx)
	account := mustCreateTestAccount(t, tx)

	require.NoError(t, repo.CreditBalance(context.Background(), account.ID, 1100))
	require.NoError(t, repo.CreditBalance(context.Background(), account.ID, 400))

	balance, err := repo.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1500), balance)
}

func TestRepository_ConcurrentCreditsSum(t *testing.T) {
	conn := openTestDB(t)

	repo := NewRepository(conn)
	account := mustCreateTestAccount(t, conn)
	t.Cleanup(func() {
		conn.Exec("DELETE FROM balances WHERE account_id = ?", account.ID)
		conn.Exec("DELETE FROM accounts WHERE id = ?", account.ID)
	})

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = repo.CreditBalance(context.Background(), account.ID, 100)
		}()
	}
	wg.Wait()

	balance, err := repo.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(workers*100), balance)
}

func TestRepository_HistoryByAccountCursor(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	defer tx.Rollback()

	repo := NewRepository(tx)
	account := mustCreateTestAccount(t, tx)
	pkg := mustCreateTestPackage(t, tx)

	var ids []uint64
	for i := 0; i < 5; i++ {
		donation := mustCreatePendingDonation(t, repo, account, pkg)
		ids = append(ids, donation.ID)
	}

	rows, err := repo.HistoryByAccount(context.Background(), account.ID, 3, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, ids[4], rows[0].ID)

	cursor := rows[len(rows)-1].ID
	rest, err := repo.HistoryByAccount(context.Background(), account.ID, 3, cursorAt(cursor))
	require.NoError(t, err)
	require.Len(t, rest, 2)
	require.Equal(t, ids[1], rest[0].ID)
}

func TestRepository_ExpireStalePending(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	defer tx.Rollback()

	repo := NewRepository(tx)
	account := mustCreateTestAccount(t, tx)
	pkg := mustCreateTestPackage(t, tx)

	stale := mustCreatePendingDonation(t, repo, account, pkg)
	require.NoError(t, tx.Exec(
		"UPDATE donations SET created_at = now() - interval '4 days' WHERE id = ?", stale.ID,
	).Error)
	fresh := mustCreatePendingDonation(t, repo, account, pkg)

	expired, err := repo.ExpireStalePending(context.Background(), time.Now().UTC().Add(-72*time.Hour), 100)
	require.NoError(t, err)
	require.Equal(t, int64(1), expired)

	staleRow, err := repo.FindByID(context.Background(), stale.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DonationStatusCancelled, staleRow.Status)

	freshRow, err := repo.FindByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DonationStatusPending, freshRow.Status)
}

func TestRepository_PackageDeletionLeavesDonationsIntact(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	defer tx.Rollback()

	repo := NewRepository(tx)
	account := mustCreateTestAccount(t, tx)
	pkg := mustCreateTestPackage(t, tx)
	donation := mustCreatePendingDonation(t, repo, account, pkg)

	won, err := repo.SettlePending(context.Background(), donation.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, won)

	// the sold package can be removed from the catalog outright
	require.NoError(t, tx.Delete(&models.DonationPackage{}, pkg.ID).Error)

	stored, err := repo.FindByID(context.Background(), donation.ID)
	require.NoError(t, err)
	require.Equal(t, pkg.ID, stored.PackageID)
	require.Equal(t, "10.00", stored.AmountCharged.StringFixed(2))
	require.Equal(t, int64(1100), stored.CurrencyAwarded)
}
