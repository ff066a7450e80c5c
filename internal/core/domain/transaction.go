package domain

import "github.com/shopspring/decimal"

// TransactionType distinguishes balance top-ups from outbound transfers.
type TransactionType string

const (
	TopUp    TransactionType = "TOPUP"
	Transfer TransactionType = "TRANSFER"
)

// TransactionStatus is the lifecycle state of a transaction.
// Pending is the only initial state; Completed and Cancelled are terminal.
type TransactionStatus string

const (
	Pending   TransactionStatus = "PENDING"
	Completed TransactionStatus = "COMPLETED"
	Cancelled TransactionStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is permitted.
func (s TransactionStatus) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

// WalletService is the Haitian mobile-wallet channel a transfer pays into.
type WalletService string

const (
	NatCash WalletService = "NATCASH"
	MonCash WalletService = "MONCASH"
)

// Transaction represents a single top-up or transfer request.
//
// TotalMXN is the amount that actually affects the ledger: equal to
// AmountMXN for top-ups, AmountMXN plus FeeMXN for transfers. Amounts
// are immutable once the transaction is recorded.
type Transaction struct {
	TransactionID string            `json:"transactionID"` // Primary Key (UUID)
	AccountID     string            `json:"accountID"`     // Owning account
	Type          TransactionType   `json:"type"`
	AmountMXN     decimal.Decimal   `json:"amountMXN"` // Requested amount
	FeeMXN        decimal.Decimal   `json:"feeMXN"`    // Commission; zero for top-ups
	TotalMXN      decimal.Decimal   `json:"totalMXN"`  // Ledger-affecting amount
	AmountHTG     decimal.Decimal   `json:"amountHTG"` // Destination amount; zero for top-ups
	Status        TransactionStatus `json:"status"`

	// Transfer-only fields.
	Service       WalletService `json:"service,omitempty"`
	ReceiverName  string        `json:"receiverName,omitempty"`
	ReceiverPhone string        `json:"receiverPhone,omitempty"`
	SenderName    string        `json:"senderName,omitempty"`
	SenderPhone   string        `json:"senderPhone,omitempty"`

	// Top-up-only fields. ReceiptName references the proof-of-payment
	// attachment by name only; its bytes are never inspected or stored.
	ReceiptName string `json:"receiptName,omitempty"`
	Notes       string `json:"notes,omitempty"`

	AuditFields
}
