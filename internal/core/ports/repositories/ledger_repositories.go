package repositories

import (
	"context"
	"time"

	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionFilter narrows the transaction listings used for per-account
// history and the admin dashboard. Zero values mean "no restriction".
type TransactionFilter struct {
	AccountID string
	Status    *domain.TransactionStatus
	Limit     int
	Offset    int
}

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its ID.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountByEmail retrieves an account by its login email.
	// Matching is exact unless the repository was configured for
	// case-insensitive lookup.
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)

	// FindAccounts retrieves a paginated list of accounts.
	FindAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account. Returns apperrors.ErrDuplicate
	// if the email is already registered.
	SaveAccount(ctx context.Context, account domain.Account) error
}

// TransactionReader defines read operations for transaction data
type TransactionReader interface {
	// FindTransactionByID retrieves a specific transaction by its ID.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactions retrieves transactions matching the filter,
	// newest first.
	FindTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
}

// TransactionWriter defines the two compound mutations of the ledger.
// Both apply their balance delta and their record change as one atomic
// unit; no partial-write state is ever visible to readers.
type TransactionWriter interface {
	// SaveTransaction inserts a new Pending transaction and applies
	// balanceDelta to the owning account's balance. A negative delta that
	// would take the balance below zero fails with
	// apperrors.ErrInsufficientFunds and writes nothing.
	SaveTransaction(ctx context.Context, txn domain.Transaction, balanceDelta decimal.Decimal) error

	// ResolveTransaction moves a Pending transaction to a terminal status
	// and applies balanceDelta to the owning account. It fails with
	// apperrors.ErrStaleTransition, writing nothing, when the transaction
	// has already been resolved. This check is unconditional so repeated
	// adjudications can never double-apply a balance effect.
	ResolveTransaction(ctx context.Context, transactionID string, status domain.TransactionStatus, balanceDelta decimal.Decimal, resolverID string, resolvedAt time.Time) error
}

// SnapshotReader exports the ledger as one consistent unit.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (*domain.LedgerSnapshot, error)
}

// LedgerRepositoryFacade combines all ledger repository interfaces.
type LedgerRepositoryFacade interface {
	AccountReader
	AccountWriter
	TransactionReader
	TransactionWriter
	SnapshotReader
}
