package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Account represents a customer of the remittance service.
// The balance is always expressed in the home currency (MXN); the
// MXN->HTG conversion only ever appears on transfer transactions.
type Account struct {
	AccountID    string          `json:"accountID"` // Primary Key (UUID)
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Email        string          `json:"email"` // Login lookup key
	Phone        string          `json:"phone"`
	// PasswordHash must marshal so file-backed stores round-trip it; the
	// dto layer keeps it out of every API response.
	PasswordHash string          `json:"passwordHash,omitempty"`
	Balance      decimal.Decimal `json:"balance"` // Home currency (MXN)
	IsAdmin      bool            `json:"isAdmin"` // Immutable after creation
	AuditFields
}

// FullName returns the display name used on transfer receipts.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
