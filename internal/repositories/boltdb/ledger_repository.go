// Package boltdb implements the ledger store on an embedded BoltDB file.
// All data lives in a single file, which matches the whole-snapshot
// persistence model: every mutation commits one consistent view of the
// ledger, and no external database process is required.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sort"
	"strings"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/shopspring/decimal"

	"github.com/mexihaiti/remesa-backend/internal/apperrors"
	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	portsrepo "github.com/mexihaiti/remesa-backend/internal/core/ports/repositories"
)

var (
	bucketAccounts  = []byte("accounts")
	bucketEmails    = []byte("accounts_by_email")
	bucketTxns      = []byte("transactions")
	bucketTxnsOrder = []byte("transactions_order") // seq -> transactionID
)

// LedgerRepository wraps a BoltDB database and exposes the ledger store
// operations. Bolt serializes writers, so the compound mutations keep the
// single-writer guarantee: the status check, the record write and the
// balance change commit together or not at all.
type LedgerRepository struct {
	db        *bolt.DB
	emailFold bool
}

// New opens (or creates) a BoltDB database at the given path and ensures
// the ledger buckets exist.
func New(path string, emailFold bool) (*LedgerRepository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAccounts, bucketEmails, bucketTxns, bucketTxnsOrder} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &LedgerRepository{db: db, emailFold: emailFold}, nil
}

var _ portsrepo.LedgerRepositoryFacade = (*LedgerRepository)(nil)

// Close releases the database file lock.
func (r *LedgerRepository) Close() error {
	return r.db.Close()
}

func (r *LedgerRepository) normalizeEmail(email string) string {
	if r.emailFold {
		return strings.ToLower(email)
	}
	return email
}

// SaveAccount persists a new account.
func (r *LedgerRepository) SaveAccount(_ context.Context, account domain.Account) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket(bucketAccounts)
		emails := tx.Bucket(bucketEmails)

		if accounts.Get([]byte(account.AccountID)) != nil {
			return apperrors.ErrDuplicate
		}
		emailKey := []byte(r.normalizeEmail(account.Email))
		if emails.Get(emailKey) != nil {
			return apperrors.ErrDuplicate
		}

		data, err := json.Marshal(account)
		if err != nil {
			return err
		}
		if err := accounts.Put([]byte(account.AccountID), data); err != nil {
			return err
		}
		return emails.Put(emailKey, []byte(account.AccountID))
	})
}

func getAccount(tx *bolt.Tx, accountID string) (*domain.Account, error) {
	data := tx.Bucket(bucketAccounts).Get([]byte(accountID))
	if data == nil {
		return nil, apperrors.ErrNotFound
	}
	var account domain.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func putAccount(tx *bolt.Tx, account *domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketAccounts).Put([]byte(account.AccountID), data)
}

// FindAccountByID retrieves an account by ID.
func (r *LedgerRepository) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	var account *domain.Account
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		account, err = getAccount(tx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindAccountByEmail retrieves an account by its login email.
func (r *LedgerRepository) FindAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	var account *domain.Account
	err := r.db.View(func(tx *bolt.Tx) error {
		accountID := tx.Bucket(bucketEmails).Get([]byte(r.normalizeEmail(email)))
		if accountID == nil {
			return apperrors.ErrNotFound
		}
		var err error
		account, err = getAccount(tx, string(accountID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindAccounts retrieves a paginated list of accounts, oldest first.
func (r *LedgerRepository) FindAccounts(_ context.Context, limit int, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var all []domain.Account
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccounts).ForEach(func(_, v []byte) error {
			var account domain.Account
			if err := json.Unmarshal(v, &account); err != nil {
				return err
			}
			all = append(all, account)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].AccountID < all[j].AccountID
	})

	if offset >= len(all) {
		return []domain.Account{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// applyDelta mutates an account balance, refusing to take it negative.
func applyDelta(account *domain.Account, delta decimal.Decimal, by string, at time.Time) error {
	if delta.IsZero() {
		return nil
	}
	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() {
		return apperrors.ErrInsufficientFunds
	}
	account.Balance = newBalance
	account.LastUpdatedAt = at
	account.LastUpdatedBy = by
	return nil
}

// SaveTransaction inserts a new transaction and applies balanceDelta to
// the owning account in one Bolt transaction.
func (r *LedgerRepository) SaveTransaction(_ context.Context, txn domain.Transaction, balanceDelta decimal.Decimal) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		txns := tx.Bucket(bucketTxns)
		if txns.Get([]byte(txn.TransactionID)) != nil {
			return apperrors.ErrDuplicate
		}

		account, err := getAccount(tx, txn.AccountID)
		if err != nil {
			return err
		}
		if err := applyDelta(account, balanceDelta, txn.CreatedBy, txn.CreatedAt); err != nil {
			return err
		}
		if err := putAccount(tx, account); err != nil {
			return err
		}

		data, err := json.Marshal(txn)
		if err != nil {
			return err
		}
		if err := txns.Put([]byte(txn.TransactionID), data); err != nil {
			return err
		}

		order := tx.Bucket(bucketTxnsOrder)
		seq, err := order.NextSequence()
		if err != nil {
			return err
		}
		return order.Put(itob(seq), []byte(txn.TransactionID))
	})
}

// FindTransactionByID retrieves a transaction by ID.
func (r *LedgerRepository) FindTransactionByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTxns).Get([]byte(transactionID))
		if data == nil {
			return apperrors.ErrNotFound
		}
		return json.Unmarshal(data, &txn)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindTransactions retrieves transactions matching the filter, newest
// first, by walking the insertion-order index backwards.
func (r *LedgerRepository) FindTransactions(_ context.Context, filter portsrepo.TransactionFilter) ([]domain.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	matched := []domain.Transaction{}
	err := r.db.View(func(tx *bolt.Tx) error {
		txns := tx.Bucket(bucketTxns)
		cursor := tx.Bucket(bucketTxnsOrder).Cursor()

		skipped := 0
		for k, id := cursor.Last(); k != nil && len(matched) < limit; k, id = cursor.Prev() {
			data := txns.Get(id)
			if data == nil {
				continue
			}
			var txn domain.Transaction
			if err := json.Unmarshal(data, &txn); err != nil {
				return err
			}
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
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

// ResolveTransaction moves a Pending transaction to a terminal status and
// applies balanceDelta in one Bolt transaction. The status check and the
// writes commit together, so repeated resolutions can never double-apply.
func (r *LedgerRepository) ResolveTransaction(_ context.Context, transactionID string, status domain.TransactionStatus, balanceDelta decimal.Decimal, resolverID string, resolvedAt time.Time) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		txns := tx.Bucket(bucketTxns)
		data := txns.Get([]byte(transactionID))
		if data == nil {
			return apperrors.ErrNotFound
		}
		var txn domain.Transaction
		if err := json.Unmarshal(data, &txn); err != nil {
			return err
		}
		if txn.Status != domain.Pending {
			return apperrors.ErrStaleTransition
		}

		account, err := getAccount(tx, txn.AccountID)
		if err != nil {
			return err
		}
		if err := applyDelta(account, balanceDelta, resolverID, resolvedAt); err != nil {
			return err
		}
		if err := putAccount(tx, account); err != nil {
			return err
		}

		txn.Status = status
		txn.LastUpdatedAt = resolvedAt
		txn.LastUpdatedBy = resolverID
		updated, err := json.Marshal(txn)
		if err != nil {
			return err
		}
		return txns.Put([]byte(transactionID), updated)
	})
}

// Snapshot exports the whole ledger as one consistent unit.
func (r *LedgerRepository) Snapshot(_ context.Context) (*domain.LedgerSnapshot, error) {
	snapshot := &domain.LedgerSnapshot{
		Accounts:     []domain.Account{},
		Transactions: []domain.Transaction{},
	}
	err := r.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(bucketAccounts).ForEach(func(_, v []byte) error {
			var account domain.Account
			if err := json.Unmarshal(v, &account); err != nil {
				return err
			}
			snapshot.Accounts = append(snapshot.Accounts, account)
			return nil
		})
		if err != nil {
			return err
		}

		txns := tx.Bucket(bucketTxns)
		return tx.Bucket(bucketTxnsOrder).ForEach(func(_, id []byte) error {
			data := txns.Get(id)
			if data == nil {
				return nil
			}
			var txn domain.Transaction
			if err := json.Unmarshal(data, &txn); err != nil {
				return err
			}
			snapshot.Transactions = append(snapshot.Transactions, txn)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(snapshot.Accounts, func(i, j int) bool {
		if !snapshot.Accounts[i].CreatedAt.Equal(snapshot.Accounts[j].CreatedAt) {
			return snapshot.Accounts[i].CreatedAt.Before(snapshot.Accounts[j].CreatedAt)
		}
		return snapshot.Accounts[i].AccountID < snapshot.Accounts[j].AccountID
	})
	return snapshot, nil
}

// itob returns an 8-byte big endian representation of v, so sequence keys
// sort in insertion order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
