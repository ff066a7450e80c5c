// Package pgsql implements the ledger store on PostgreSQL for production
// deployments. The compound mutations run inside a database transaction so
// the record change and the balance change commit together or not at all.
package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mexihaiti/remesa-backend/internal/apperrors"
	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	portsrepo "github.com/mexihaiti/remesa-backend/internal/core/ports/repositories"
)

const uniqueViolation = "23505"

type LedgerRepository struct {
	db        *pgxpool.Pool
	emailFold bool
}

// New creates a ledger repository backed by the given connection pool.
func New(db *pgxpool.Pool, emailFold bool) *LedgerRepository {
	return &LedgerRepository{db: db, emailFold: emailFold}
}

var _ portsrepo.LedgerRepositoryFacade = (*LedgerRepository)(nil)

const accountColumns = `account_id, first_name, last_name, email, phone, password_hash, balance, is_admin, created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.AccountID,
		&a.FirstName,
		&a.LastName,
		&a.Email,
		&a.Phone,
		&a.PasswordHash,
		&a.Balance,
		&a.IsAdmin,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// SaveAccount persists a new account.
func (r *LedgerRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
        INSERT INTO accounts (` + accountColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
    `
	_, err := r.db.Exec(ctx, query,
		account.AccountID,
		account.FirstName,
		account.LastName,
		account.Email,
		account.Phone,
		account.PasswordHash,
		account.Balance,
		account.IsAdmin,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// FindAccountByID retrieves an account by ID.
func (r *LedgerRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// FindAccountByEmail retrieves an account by its login email.
func (r *LedgerRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1;`
	if r.emailFold {
		query = `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1);`
	}
	return scanAccount(r.db.QueryRow(ctx, query, email))
}

// FindAccounts retrieves a paginated list of accounts, oldest first.
func (r *LedgerRepository) FindAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
        SELECT ` + accountColumns + `
        FROM accounts
        ORDER BY created_at, account_id
        LIMIT $1 OFFSET $2;
    `
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// adjustBalanceInTx applies a delta to one account inside tx. The balance
// check runs in the same statement, so a concurrent writer can never take
// the balance below zero.
func adjustBalanceInTx(ctx context.Context, tx pgx.Tx, accountID string, delta decimal.Decimal, by string, at time.Time) error {
	if delta.IsZero() {
		return nil
	}
	tag, err := tx.Exec(ctx, `
        UPDATE accounts
        SET balance = balance + $1, last_updated_at = $2, last_updated_by = $3
        WHERE account_id = $4 AND balance + $1 >= 0;
    `, delta, at, by, accountID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_id = $1);`, accountID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrInsufficientFunds
	}
	return nil
}

const transactionColumns = `transaction_id, account_id, type, amount_mxn, fee_mxn, total_mxn, amount_htg, status, service, receiver_name, receiver_phone, sender_name, sender_phone, receipt_name, notes, created_at, created_by, last_updated_at, last_updated_by`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.TransactionID,
		&t.AccountID,
		&t.Type,
		&t.AmountMXN,
		&t.FeeMXN,
		&t.TotalMXN,
		&t.AmountHTG,
		&t.Status,
		&t.Service,
		&t.ReceiverName,
		&t.ReceiverPhone,
		&t.SenderName,
		&t.SenderPhone,
		&t.ReceiptName,
		&t.Notes,
		&t.CreatedAt,
		&t.CreatedBy,
		&t.LastUpdatedAt,
		&t.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// SaveTransaction inserts a new transaction and applies balanceDelta to
// the owning account within one database transaction.
func (r *LedgerRepository) SaveTransaction(ctx context.Context, txn domain.Transaction, balanceDelta decimal.Decimal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := adjustBalanceInTx(ctx, tx, txn.AccountID, balanceDelta, txn.CreatedBy, txn.CreatedAt); err != nil {
		return err
	}
	if balanceDelta.IsZero() {
		// Still require the account to exist.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_id = $1);`, txn.AccountID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrNotFound
		}
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO transactions (`+transactionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
    `,
		txn.TransactionID,
		txn.AccountID,
		txn.Type,
		txn.AmountMXN,
		txn.FeeMXN,
		txn.TotalMXN,
		txn.AmountHTG,
		txn.Status,
		txn.Service,
		txn.ReceiverName,
		txn.ReceiverPhone,
		txn.SenderName,
		txn.SenderPhone,
		txn.ReceiptName,
		txn.Notes,
		txn.CreatedAt,
		txn.CreatedBy,
		txn.LastUpdatedAt,
		txn.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return tx.Commit(ctx)
}

// FindTransactionByID retrieves a transaction by ID.
func (r *LedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`
	return scanTransaction(r.db.QueryRow(ctx, query, transactionID))
}

// FindTransactions retrieves transactions matching the filter, newest first.
func (r *LedgerRepository) FindTransactions(ctx context.Context, filter portsrepo.TransactionFilter) ([]domain.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	args := []any{}
	where := ""
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		where = fmt.Sprintf(" WHERE account_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		if where == "" {
			where = fmt.Sprintf(" WHERE status = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND status = $%d", len(args))
		}
	}
	args = append(args, limit, offset)
	query += where + fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d OFFSET $%d;", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// ResolveTransaction moves a Pending transaction to a terminal status and
// applies balanceDelta within one database transaction. The status guard
// is part of the UPDATE itself, so repeated resolutions can never
// double-apply.
func (r *LedgerRepository) ResolveTransaction(ctx context.Context, transactionID string, status domain.TransactionStatus, balanceDelta decimal.Decimal, resolverID string, resolvedAt time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var accountID string
	err = tx.QueryRow(ctx, `
        UPDATE transactions
        SET status = $1, last_updated_at = $2, last_updated_by = $3
        WHERE transaction_id = $4 AND status = $5
        RETURNING account_id;
    `, string(status), resolvedAt, resolverID, transactionID, string(domain.Pending)).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1);`, transactionID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return apperrors.ErrNotFound
			}
			return apperrors.ErrStaleTransition
		}
		return fmt.Errorf("failed to resolve transaction %s: %w", transactionID, err)
	}

	if err := adjustBalanceInTx(ctx, tx, accountID, balanceDelta, resolverID, resolvedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Snapshot exports the whole ledger as one consistent unit, using a
// repeatable-read transaction so both collections come from the same view.
func (r *LedgerRepository) Snapshot(ctx context.Context) (*domain.LedgerSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	snapshot := &domain.LedgerSnapshot{
		Accounts:     []domain.Account{},
		Transactions: []domain.Transaction{},
	}

	rows, err := tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, account_id;`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		snapshot.Accounts = append(snapshot.Accounts, *account)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq;`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		snapshot.Transactions = append(snapshot.Transactions, *txn)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return snapshot, nil
}
