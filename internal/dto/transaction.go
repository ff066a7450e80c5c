package dto

import (
	"time"

	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SubmitTopUpRequest defines the payload to request a balance top-up.
// The receipt is referenced by name only; its bytes never reach the core.
type SubmitTopUpRequest struct {
	AmountMXN   decimal.Decimal `json:"amountMXN" binding:"required,dgt0"`
	ReceiptName string          `json:"receiptName" binding:"required"`
	Notes       string          `json:"notes"`
}

// SubmitTransferRequest defines the payload to request an MXN->HTG transfer.
type SubmitTransferRequest struct {
	AmountMXN     decimal.Decimal      `json:"amountMXN" binding:"required,dgt0"`
	Service       domain.WalletService `json:"service" binding:"required,oneof=NATCASH MONCASH"`
	ReceiverName  string               `json:"receiverName" binding:"required"`
	ReceiverPhone string               `json:"receiverPhone" binding:"required"`
	SenderName    string               `json:"senderName"`
	SenderPhone   string               `json:"senderPhone"`
}

// TransferQuote is the fee/total/payout preview shown before confirming.
type TransferQuote struct {
	AmountMXN decimal.Decimal `json:"amountMXN"`
	FeeMXN    decimal.Decimal `json:"feeMXN"`
	TotalMXN  decimal.Decimal `json:"totalMXN"`
	AmountHTG decimal.Decimal `json:"amountHTG"`
}

// QuoteTransferParams defines query parameters for the transfer quote.
type QuoteTransferParams struct {
	AmountMXN decimal.Decimal `form:"amount" binding:"required,dgt0"`
}

// AdjudicateRequest defines the admin resolution payload.
type AdjudicateRequest struct {
	Resolution domain.TransactionStatus `json:"resolution" binding:"required,oneof=COMPLETED CANCELLED"`
}

// AdjudicateResponse carries the resolved transaction and, when a balance
// effect applied, the updated account.
type AdjudicateResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Account     *AccountResponse    `json:"account,omitempty"`
}

// TransactionResponse is the API representation of a transaction.
type TransactionResponse struct {
	TransactionID string                   `json:"transactionID"`
	AccountID     string                   `json:"accountID"`
	Type          domain.TransactionType   `json:"type"`
	AmountMXN     decimal.Decimal          `json:"amountMXN"`
	FeeMXN        decimal.Decimal          `json:"feeMXN"`
	TotalMXN      decimal.Decimal          `json:"totalMXN"`
	AmountHTG     decimal.Decimal          `json:"amountHTG"`
	Status        domain.TransactionStatus `json:"status"`
	Service       domain.WalletService     `json:"service,omitempty"`
	ReceiverName  string                   `json:"receiverName,omitempty"`
	ReceiverPhone string                   `json:"receiverPhone,omitempty"`
	SenderName    string                   `json:"senderName,omitempty"`
	SenderPhone   string                   `json:"senderPhone,omitempty"`
	ReceiptName   string                   `json:"receiptName,omitempty"`
	Notes         string                   `json:"notes,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
}

// ToTransactionResponse converts a domain.Transaction to its API representation.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.TransactionID,
		AccountID:     t.AccountID,
		Type:          t.Type,
		AmountMXN:     t.AmountMXN,
		FeeMXN:        t.FeeMXN,
		TotalMXN:      t.TotalMXN,
		AmountHTG:     t.AmountHTG,
		Status:        t.Status,
		Service:       t.Service,
		ReceiverName:  t.ReceiverName,
		ReceiverPhone: t.ReceiverPhone,
		SenderName:    t.SenderName,
		SenderPhone:   t.SenderPhone,
		ReceiptName:   t.ReceiptName,
		Notes:         t.Notes,
		CreatedAt:     t.CreatedAt,
	}
}

// ListTransactionsParams defines query parameters for listing transactions.
type ListTransactionsParams struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
	Limit  int    `form:"limit,default=20"`
	Offset int    `form:"offset,default=0"`
}

// ListTransactionsResponse wraps the list of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// ToListTransactionsResponse converts a slice of domain.Transaction to the list DTO.
func ToListTransactionsResponse(txns []domain.Transaction) ListTransactionsResponse {
	resp := make([]TransactionResponse, len(txns))
	for i := range txns {
		resp[i] = ToTransactionResponse(&txns[i])
	}
	return ListTransactionsResponse{Transactions: resp}
}
