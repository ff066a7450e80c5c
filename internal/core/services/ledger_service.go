package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mexihaiti/remesa-backend/internal/apperrors"
	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	portsrepo "github.com/mexihaiti/remesa-backend/internal/core/ports/repositories"
	portssvc "github.com/mexihaiti/remesa-backend/internal/core/ports/services"
	"github.com/mexihaiti/remesa-backend/internal/dto"
	"github.com/mexihaiti/remesa-backend/internal/metrics"
	"github.com/mexihaiti/remesa-backend/internal/middleware"
	"github.com/mexihaiti/remesa-backend/internal/utils"
	"github.com/mexihaiti/remesa-backend/internal/worker"
)

var (
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrNotAdjudicable    = errors.New("resolution must be a terminal status")
)

// ledgerService encodes the transaction lifecycle rules.
//
// The balance policy is asymmetric on purpose: top-ups credit only on
// admin approval, while transfers debit immediately on submission and are
// refunded only on rejection. This is the core business rule of the
// system and must hold across every path.
type ledgerService struct {
	repo           portsrepo.LedgerRepositoryFacade
	exchangeRate   decimal.Decimal // HTG per MXN
	commissionRate decimal.Decimal

	// Post-commit notification channel. Optional: a nil notifier or empty
	// destination disables dispatch entirely.
	notifier  portssvc.Notifier
	dispatch  *worker.Pool
	adminDest string
}

// NewLedgerService creates a new LedgerService. notifier and dispatch may
// be nil; adminDest is the destination identifier for admin alerts.
func NewLedgerService(
	repo portsrepo.LedgerRepositoryFacade,
	exchangeRate decimal.Decimal,
	commissionRate decimal.Decimal,
	notifier portssvc.Notifier,
	dispatch *worker.Pool,
	adminDest string,
) portssvc.LedgerSvcFacade {
	return &ledgerService{
		repo:           repo,
		exchangeRate:   exchangeRate,
		commissionRate: commissionRate,
		notifier:       notifier,
		dispatch:       dispatch,
		adminDest:      adminDest,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// QuoteTransfer computes the fee, total deduction and HTG payout for a
// prospective transfer amount.
func (s *ledgerService) QuoteTransfer(amountMXN decimal.Decimal) (*dto.TransferQuote, error) {
	if amountMXN.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
	}
	fee := amountMXN.Mul(s.commissionRate)
	return &dto.TransferQuote{
		AmountMXN: amountMXN,
		FeeMXN:    fee,
		TotalMXN:  amountMXN.Add(fee),
		AmountHTG: amountMXN.Mul(s.exchangeRate),
	}, nil
}

// SubmitTopUp records a Pending top-up. The balance is deliberately left
// untouched; money is only added once an admin completes the transaction.
func (s *ledgerService) SubmitTopUp(ctx context.Context, accountID string, req dto.SubmitTopUpRequest) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.AmountMXN.LessThanOrEqual(decimal.Zero) {
		metrics.TransactionsRejected.Inc()
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
	}

	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		AccountID:     account.AccountID,
		Type:          domain.TopUp,
		AmountMXN:     req.AmountMXN,
		FeeMXN:        decimal.Zero,
		TotalMXN:      req.AmountMXN,
		AmountHTG:     decimal.Zero,
		Status:        domain.Pending,
		ReceiptName:   req.ReceiptName,
		Notes:         req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     account.AccountID,
			LastUpdatedAt: now,
			LastUpdatedBy: account.AccountID,
		},
	}

	if err := s.repo.SaveTransaction(ctx, txn, decimal.Zero); err != nil {
		return nil, fmt.Errorf("failed to save top-up: %w", err)
	}

	metrics.TransactionsTotal.WithLabelValues("topup").Inc()
	logger.Info("Top-up recorded",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("amount_mxn", txn.AmountMXN.String()),
	)

	s.notifyAsync(fmt.Sprintf(
		"Nueva recarga solicitada: %s por %s. Comprobante: %s",
		account.FullName(), utils.FormatMXN(txn.AmountMXN), txn.ReceiptName,
	))

	return &txn, nil
}

// SubmitTransfer records a Pending transfer and debits amount+fee in the
// same atomic operation. There is no window where the transaction exists
// without the debit, or the debit without the transaction.
func (s *ledgerService) SubmitTransfer(ctx context.Context, accountID string, req dto.SubmitTransferRequest) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.AmountMXN.LessThanOrEqual(decimal.Zero) {
		metrics.TransactionsRejected.Inc()
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
	}

	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	fee := req.AmountMXN.Mul(s.commissionRate)
	total := req.AmountMXN.Add(fee)
	if account.Balance.LessThan(total) {
		metrics.TransactionsRejected.Inc()
		return nil, fmt.Errorf("%w: total %s exceeds balance %s",
			apperrors.ErrInsufficientFunds, total, account.Balance)
	}

	senderName := req.SenderName
	if senderName == "" {
		senderName = account.FullName()
	}
	senderPhone := req.SenderPhone
	if senderPhone == "" {
		senderPhone = account.Phone
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		AccountID:     account.AccountID,
		Type:          domain.Transfer,
		AmountMXN:     req.AmountMXN,
		FeeMXN:        fee,
		TotalMXN:      total,
		AmountHTG:     req.AmountMXN.Mul(s.exchangeRate),
		Status:        domain.Pending,
		Service:       req.Service,
		ReceiverName:  req.ReceiverName,
		ReceiverPhone: req.ReceiverPhone,
		SenderName:    senderName,
		SenderPhone:   senderPhone,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     account.AccountID,
			LastUpdatedAt: now,
			LastUpdatedBy: account.AccountID,
		},
	}

	// Immediate debit: the money is reserved now so two submissions can
	// never both spend the same balance. The repository re-checks the
	// resulting balance under its own lock.
	if err := s.repo.SaveTransaction(ctx, txn, total.Neg()); err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			metrics.TransactionsRejected.Inc()
		}
		return nil, fmt.Errorf("failed to save transfer: %w", err)
	}

	metrics.TransactionsTotal.WithLabelValues("transfer").Inc()
	logger.Info("Transfer recorded",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("total_mxn", txn.TotalMXN.String()),
		slog.String("amount_htg", txn.AmountHTG.String()),
	)

	s.notifyAsync(fmt.Sprintf(
		"Nueva transferencia solicitada: %s (%s) envia %s via %s a %s (%s). Cambio: %s. Comision: %s. Total deducido: %s",
		senderName, senderPhone, utils.FormatMXN(txn.AmountMXN), txn.Service,
		txn.ReceiverName, txn.ReceiverPhone, utils.FormatHTG(txn.AmountHTG),
		utils.FormatMXN(txn.FeeMXN), utils.FormatMXN(txn.TotalMXN),
	))

	return &txn, nil
}

// resolutionDelta returns the balance effect of resolving txn.
// Completing a top-up credits its total; cancelling a transfer refunds its
// total; every other (type, resolution) pair leaves the balance alone.
func resolutionDelta(txn *domain.Transaction, resolution domain.TransactionStatus) decimal.Decimal {
	switch {
	case txn.Type == domain.TopUp && resolution == domain.Completed:
		return txn.TotalMXN
	case txn.Type == domain.Transfer && resolution == domain.Cancelled:
		return txn.TotalMXN
	default:
		return decimal.Zero
	}
}

// Adjudicate moves a Pending transaction to a terminal status and applies
// the corresponding balance effect. Adjudicating an already-resolved
// transaction is a silent no-op returning the current state, so repeated
// calls never double-apply. Admin access is gated by the caller; the
// Pending-only precondition is enforced here unconditionally.
func (s *ledgerService) Adjudicate(ctx context.Context, transactionID string, resolution domain.TransactionStatus, adjudicatorID string) (*domain.Transaction, *domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !resolution.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrNotAdjudicable)
	}

	txn, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}

	if txn.Status != domain.Pending {
		logger.Info("Adjudication skipped for resolved transaction",
			slog.String("transaction_id", transactionID),
			slog.String("status", string(txn.Status)),
		)
		account, err := s.repo.FindAccountByID(ctx, txn.AccountID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find account %s: %w", txn.AccountID, err)
		}
		return txn, account, nil
	}

	delta := resolutionDelta(txn, resolution)
	err = s.repo.ResolveTransaction(ctx, transactionID, resolution, delta, adjudicatorID, time.Now().UTC())
	if err != nil {
		// A concurrent adjudication won the race; report the state it left.
		if errors.Is(err, apperrors.ErrStaleTransition) {
			return s.currentState(ctx, transactionID)
		}
		return nil, nil, fmt.Errorf("failed to resolve transaction %s: %w", transactionID, err)
	}

	metrics.AdjudicationsTotal.WithLabelValues(string(resolution)).Inc()
	logger.Info("Transaction adjudicated",
		slog.String("transaction_id", transactionID),
		slog.String("resolution", string(resolution)),
		slog.String("balance_delta", delta.String()),
	)

	return s.currentState(ctx, transactionID)
}

// currentState reloads a transaction and its owning account.
func (s *ledgerService) currentState(ctx context.Context, transactionID string) (*domain.Transaction, *domain.Account, error) {
	txn, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload transaction %s: %w", transactionID, err)
	}
	account, err := s.repo.FindAccountByID(ctx, txn.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find account %s: %w", txn.AccountID, err)
	}
	return txn, account, nil
}

// GetTransactionByID retrieves a single transaction.
func (s *ledgerService) GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return txn, nil
}

// ListTransactionsForAccount retrieves one account's history, newest first.
func (s *ledgerService) ListTransactionsForAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.Transaction, error) {
	txns, err := s.repo.FindTransactions(ctx, portsrepo.TransactionFilter{
		AccountID: accountID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %s: %w", accountID, err)
	}
	return txns, nil
}

// ListTransactions retrieves transactions across all accounts, optionally
// filtered by status.
func (s *ledgerService) ListTransactions(ctx context.Context, status *domain.TransactionStatus, limit, offset int) ([]domain.Transaction, error) {
	txns, err := s.repo.FindTransactions(ctx, portsrepo.TransactionFilter{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// SnapshotLedger exports the whole ledger as one consistent unit.
func (s *ledgerService) SnapshotLedger(ctx context.Context) (*domain.LedgerSnapshot, error) {
	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot ledger: %w", err)
	}
	return snapshot, nil
}

// notifyAsync dispatches an admin alert after the mutation has committed.
// It never blocks and never surfaces an error to the caller.
func (s *ledgerService) notifyAsync(message string) {
	if s.notifier == nil || s.adminDest == "" {
		return
	}
	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, s.adminDest, message); err != nil {
			slog.Warn("Notification dispatch failed", slog.String("error", err.Error()))
		}
	}
	if s.dispatch == nil {
		go job()
		return
	}
	if !s.dispatch.Submit(job) {
		metrics.NotificationsDropped.Inc()
	}
}
