package services

import (
	"context"

	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	"github.com/mexihaiti/remesa-backend/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerSubmitSvc defines the user-facing transaction submission operations.
type LedgerSubmitSvc interface {
	// SubmitTopUp records a Pending top-up. The balance is untouched until
	// an admin completes the transaction.
	SubmitTopUp(ctx context.Context, accountID string, req dto.SubmitTopUpRequest) (*domain.Transaction, error)

	// SubmitTransfer records a Pending transfer and debits amount+fee from
	// the account in the same atomic operation.
	SubmitTransfer(ctx context.Context, accountID string, req dto.SubmitTransferRequest) (*domain.Transaction, error)

	// QuoteTransfer computes the fee, total deduction and HTG payout for a
	// prospective transfer amount without recording anything.
	QuoteTransfer(amountMXN decimal.Decimal) (*dto.TransferQuote, error)
}

// LedgerAdjudicateSvc defines the admin resolution operation.
type LedgerAdjudicateSvc interface {
	// Adjudicate moves a Pending transaction to Completed or Cancelled and
	// applies the balance effect for the (type, resolution) pair. Resolving
	// an already-resolved transaction is a no-op that returns the current
	// state unchanged. The caller is responsible for gating admin access;
	// the Pending-only precondition is enforced here regardless.
	Adjudicate(ctx context.Context, transactionID string, resolution domain.TransactionStatus, adjudicatorID string) (*domain.Transaction, *domain.Account, error)
}

// LedgerReaderSvc defines read operations over the ledger.
type LedgerReaderSvc interface {
	// GetTransactionByID retrieves a single transaction.
	GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListTransactionsForAccount retrieves one account's history, newest first.
	ListTransactionsForAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.Transaction, error)

	// ListTransactions retrieves transactions across all accounts,
	// optionally filtered by status (admin dashboard).
	ListTransactions(ctx context.Context, status *domain.TransactionStatus, limit, offset int) ([]domain.Transaction, error)

	// SnapshotLedger exports the whole ledger as one consistent unit.
	SnapshotLedger(ctx context.Context) (*domain.LedgerSnapshot, error)
}

// LedgerSvcFacade combines all ledger service interfaces.
type LedgerSvcFacade interface {
	LedgerSubmitSvc
	LedgerAdjudicateSvc
	LedgerReaderSvc
}
