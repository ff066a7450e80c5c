package boltdb_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mexihaiti/remesa-backend/internal/apperrors"
	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	portsrepo "github.com/mexihaiti/remesa-backend/internal/core/ports/repositories"
	"github.com/mexihaiti/remesa-backend/internal/repositories/boltdb"
)

func openTestRepo(t *testing.T) *boltdb.LedgerRepository {
	t.Helper()
	repo, err := boltdb.New(filepath.Join(t.TempDir(), "ledger.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *boltdb.LedgerRepository, balance string) domain.Account {
	t.Helper()
	now := time.Now().UTC()
	account := domain.Account{
		AccountID:    uuid.NewString(),
		FirstName:    "Marie",
		LastName:     "Joseph",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarea",
		Balance:      decimal.RequireFromString(balance),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
	}
	require.NoError(t, repo.SaveAccount(context.Background(), account))
	return account
}

func pendingTransfer(accountID, total string) domain.Transaction {
	now := time.Now().UTC()
	amount := decimal.RequireFromString(total)
	return domain.Transaction{
		TransactionID: uuid.NewString(),
		AccountID:     accountID,
		Type:          domain.Transfer,
		AmountMXN:     amount,
		TotalMXN:      amount,
		Status:        domain.Pending,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     accountID,
			LastUpdatedAt: now,
			LastUpdatedBy: accountID,
		},
	}
}

func TestAccountRoundtrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	account := seedAccount(t, repo, "1000")

	got, err := repo.FindAccountByID(ctx, account.AccountID)
	require.NoError(t, err)
	assert.Equal(t, account.Email, got.Email)
	assert.Equal(t, account.PasswordHash, got.PasswordHash, "credential must survive persistence")
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)))

	byEmail, err := repo.FindAccountByEmail(ctx, account.Email)
	require.NoError(t, err)
	assert.Equal(t, account.AccountID, byEmail.AccountID)
}

func TestSaveAccount_DuplicateEmail(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	account := seedAccount(t, repo, "0")

	dup := account
	dup.AccountID = uuid.NewString()
	err := repo.SaveAccount(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestSaveTransaction_AtomicDebit(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	account := seedAccount(t, repo, "1000")
	txn := pendingTransfer(account.AccountID, "530")

	require.NoError(t, repo.SaveTransaction(ctx, txn, decimal.RequireFromString("-530")))

	got, err := repo.FindAccountByID(ctx, account.AccountID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(470)), "balance was %s", got.Balance)
}

func TestSaveTransaction_InsufficientFundsRollsBack(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	account := seedAccount(t, repo, "100")
	txn := pendingTransfer(account.AccountID, "530")

	err := repo.SaveTransaction(ctx, txn, decimal.RequireFromString("-530"))
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	_, err = repo.FindTransactionByID(ctx, txn.TransactionID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := repo.FindAccountByID(ctx, account.AccountID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
}

func TestResolveTransaction_OnlyOnce(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	account := seedAccount(t, repo, "1000")
	txn := pendingTransfer(account.AccountID, "530")
	require.NoError(t, repo.SaveTransaction(ctx, txn, decimal.RequireFromString("-530")))

	refund := decimal.RequireFromString("530")
	now := time.Now().UTC()
	require.NoError(t, repo.ResolveTransaction(ctx, txn.TransactionID, domain.Cancelled, refund, "admin", now))

	err := repo.ResolveTransaction(ctx, txn.TransactionID, domain.Cancelled, refund, "admin", now)
	assert.ErrorIs(t, err, apperrors.ErrStaleTransition)

	got, err := repo.FindAccountByID(ctx, account.AccountID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)), "balance was %s", got.Balance)

	resolved, err := repo.FindTransactionByID(ctx, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.Cancelled, resolved.Status)
}

func TestFindTransactions_NewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	account := seedAccount(t, repo, "0")

	first := pendingTransfer(account.AccountID, "10")
	second := pendingTransfer(account.AccountID, "20")
	require.NoError(t, repo.SaveTransaction(ctx, first, decimal.Zero))
	require.NoError(t, repo.SaveTransaction(ctx, second, decimal.Zero))

	got, err := repo.FindTransactions(ctx, portsrepo.TransactionFilter{AccountID: account.AccountID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.TransactionID, got[0].TransactionID)
	assert.Equal(t, first.TransactionID, got[1].TransactionID)
}

func TestSnapshot_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")
	ctx := context.Background()

	repo, err := boltdb.New(path, false)
	require.NoError(t, err)

	account := seedAccount(t, repo, "1000")
	txn := pendingTransfer(account.AccountID, "530")
	require.NoError(t, repo.SaveTransaction(ctx, txn, decimal.RequireFromString("-530")))
	require.NoError(t, repo.Close())

	reopened, err := boltdb.New(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	snapshot, err := reopened.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Accounts, 1)
	require.Len(t, snapshot.Transactions, 1)
	assert.True(t, snapshot.Accounts[0].Balance.Equal(decimal.NewFromInt(470)))
	assert.Equal(t, domain.Pending, snapshot.Transactions[0].Status)
}
