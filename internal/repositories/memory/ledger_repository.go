// Package memory implements the ledger store as a single in-memory
// snapshot guarded by one lock. Every mutation is applied to that snapshot
// atomically, so readers never observe a partial write. This is the
// reference implementation of the single-writer model; the bolt and pgsql
// adapters provide durability with the same semantics.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mexihaiti/remesa-backend/internal/apperrors"
	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	portsrepo "github.com/mexihaiti/remesa-backend/internal/core/ports/repositories"
)

// LedgerRepository holds the authoritative collections of accounts and
// transactions. No other component holds a mutable reference to them.
type LedgerRepository struct {
	mu sync.RWMutex

	accounts     map[string]domain.Account
	emailIndex   map[string]string // normalized email -> accountID
	transactions map[string]domain.Transaction
	order        []string // transaction IDs in insertion order

	emailFold bool
}

// New creates an empty ledger repository. emailFold enables
// case-insensitive login email matching; the default is exact match.
func New(emailFold bool) *LedgerRepository {
	return &LedgerRepository{
		accounts:     make(map[string]domain.Account),
		emailIndex:   make(map[string]string),
		transactions: make(map[string]domain.Transaction),
		emailFold:    emailFold,
	}
}

var _ portsrepo.LedgerRepositoryFacade = (*LedgerRepository)(nil)

func (r *LedgerRepository) normalizeEmail(email string) string {
	if r.emailFold {
		return strings.ToLower(email)
	}
	return email
}

// SaveAccount persists a new account.
func (r *LedgerRepository) SaveAccount(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.AccountID]; exists {
		return apperrors.ErrDuplicate
	}
	emailKey := r.normalizeEmail(account.Email)
	if _, exists := r.emailIndex[emailKey]; exists {
		return apperrors.ErrDuplicate
	}

	r.accounts[account.AccountID] = account
	r.emailIndex[emailKey] = account.AccountID
	return nil
}

// FindAccountByID retrieves an account by ID.
func (r *LedgerRepository) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &account, nil
}

// FindAccountByEmail retrieves an account by its login email.
func (r *LedgerRepository) FindAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accountID, ok := r.emailIndex[r.normalizeEmail(email)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	account := r.accounts[accountID]
	return &account, nil
}

// FindAccounts retrieves a paginated list of accounts, oldest first.
func (r *LedgerRepository) FindAccounts(_ context.Context, limit int, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		all = append(all, account)
	}
	sortAccounts(all)

	if offset >= len(all) {
		return []domain.Account{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// SaveTransaction inserts a new transaction and applies balanceDelta to
// the owning account as one atomic unit.
func (r *LedgerRepository) SaveTransaction(_ context.Context, txn domain.Transaction, balanceDelta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[txn.TransactionID]; exists {
		return apperrors.ErrDuplicate
	}
	account, ok := r.accounts[txn.AccountID]
	if !ok {
		return apperrors.ErrNotFound
	}

	if !balanceDelta.IsZero() {
		newBalance := account.Balance.Add(balanceDelta)
		if newBalance.IsNegative() {
			return apperrors.ErrInsufficientFunds
		}
		account.Balance = newBalance
		account.LastUpdatedAt = txn.CreatedAt
		account.LastUpdatedBy = txn.CreatedBy
		r.accounts[account.AccountID] = account
	}

	r.transactions[txn.TransactionID] = txn
	r.order = append(r.order, txn.TransactionID)
	return nil
}

// FindTransactionByID retrieves a transaction by ID.
func (r *LedgerRepository) FindTransactionByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	txn, ok := r.transactions[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

// FindTransactions retrieves transactions matching the filter, newest first.
func (r *LedgerRepository) FindTransactions(_ context.Context, filter portsrepo.TransactionFilter) ([]domain.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Transaction{}
	skipped := 0
	for i := len(r.order) - 1; i >= 0 && len(matched) < limit; i-- {
		txn := r.transactions[r.order[i]]
		if filter.AccountID != "" && txn.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != nil && txn.Status != *filter.Status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		matched = append(matched, txn)
	}
	return matched, nil
}

// ResolveTransaction moves a Pending transaction to a terminal status and
// applies balanceDelta, atomically. The Pending check happens under the
// same lock as the write, so a concurrent resolution can never apply twice.
func (r *LedgerRepository) ResolveTransaction(_ context.Context, transactionID string, status domain.TransactionStatus, balanceDelta decimal.Decimal, resolverID string, resolvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn, ok := r.transactions[transactionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if txn.Status != domain.Pending {
		return apperrors.ErrStaleTransition
	}
	account, ok := r.accounts[txn.AccountID]
	if !ok {
		return apperrors.ErrNotFound
	}

	if !balanceDelta.IsZero() {
		newBalance := account.Balance.Add(balanceDelta)
		if newBalance.IsNegative() {
			return apperrors.ErrInsufficientFunds
		}
		account.Balance = newBalance
		account.LastUpdatedAt = resolvedAt
		account.LastUpdatedBy = resolverID
		r.accounts[account.AccountID] = account
	}

	txn.Status = status
	txn.LastUpdatedAt = resolvedAt
	txn.LastUpdatedBy = resolverID
	r.transactions[transactionID] = txn
	return nil
}

// Snapshot exports the whole ledger as one consistent unit.
func (r *LedgerRepository) Snapshot(_ context.Context) (*domain.LedgerSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, account)
	}
	sortAccounts(accounts)

	transactions := make([]domain.Transaction, 0, len(r.order))
	for _, id := range r.order {
		transactions = append(transactions, r.transactions[id])
	}

	return &domain.LedgerSnapshot{
		Accounts:     accounts,
		Transactions: transactions,
	}, nil
}

// Restore replaces the ledger contents with the given snapshot. Used to
// reload persisted state at startup.
func (r *LedgerRepository) Restore(_ context.Context, snapshot domain.LedgerSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = make(map[string]domain.Account, len(snapshot.Accounts))
	r.emailIndex = make(map[string]string, len(snapshot.Accounts))
	for _, account := range snapshot.Accounts {
		r.accounts[account.AccountID] = account
		r.emailIndex[r.normalizeEmail(account.Email)] = account.AccountID
	}

	r.transactions = make(map[string]domain.Transaction, len(snapshot.Transactions))
	r.order = make([]string, 0, len(snapshot.Transactions))
	for _, txn := range snapshot.Transactions {
		r.transactions[txn.TransactionID] = txn
		r.order = append(r.order, txn.TransactionID)
	}
	return nil
}

// sortAccounts gives listings and snapshots a stable order: creation
// time, then ID.
func sortAccounts(accounts []domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].AccountID < accounts[j].AccountID
	})
}
