package domain

// LedgerSnapshot is the full collection of accounts and transactions,
// treated as a single consistent unit whenever persisted or restored.
type LedgerSnapshot struct {
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
}
