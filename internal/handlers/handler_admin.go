package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mexihaiti/remesa-backend/internal/apperrors"
	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	portssvc "github.com/mexihaiti/remesa-backend/internal/core/ports/services"
	"github.com/mexihaiti/remesa-backend/internal/core/services"
	"github.com/mexihaiti/remesa-backend/internal/dto"
	"github.com/mexihaiti/remesa-backend/internal/middleware"
)

// adminHandler handles the back-office routes: queue review, account
// listing, adjudication and ledger export.
type adminHandler struct {
	accountService portssvc.AccountSvcFacade
	ledgerService  portssvc.LedgerSvcFacade
}

func newAdminHandler(as portssvc.AccountSvcFacade, ls portssvc.LedgerSvcFacade) *adminHandler {
	return &adminHandler{accountService: as, ledgerService: ls}
}

// registerAdminRoutes registers the admin routes. The group must already
// carry RequireAdmin.
func registerAdminRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, ledgerService portssvc.LedgerSvcFacade) {
	h := newAdminHandler(accountService, ledgerService)

	rg.GET("/transactions", h.listAllTransactions)
	rg.GET("/accounts", h.listAccounts)
	rg.POST("/transactions/:id/adjudicate", h.adjudicate)
	rg.GET("/ledger/snapshot", h.exportSnapshot)
}

// listAllTransactions returns transactions across all accounts, optionally
// filtered by status. The pending queue is ?status=PENDING.
func (h *adminHandler) listAllTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for admin ListTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	var status *domain.TransactionStatus
	if params.Status != "" {
		s := domain.TransactionStatus(params.Status)
		status = &s
	}

	txns, err := h.ledgerService.ListTransactions(c.Request.Context(), status, params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list transactions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(txns))
}

// listAccounts returns a paginated listing of every account.
func (h *adminHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListAccountsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListAccounts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list accounts", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list accounts"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListAccountsResponse(accounts))
}

// adjudicate resolves a Pending transaction to Completed or Cancelled.
// Resolving an already-resolved transaction returns its current state
// unchanged with 200, so retried admin clicks are harmless.
func (h *adminHandler) adjudicate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	adjudicatorID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		logger.Error("Account ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.AdjudicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Adjudicate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(
		slog.String("transaction_id", transactionID),
		slog.String("resolution", string(req.Resolution)),
		slog.String("adjudicator_id", adjudicatorID),
	)

	txn, account, err := h.ledgerService.Adjudicate(c.Request.Context(), transactionID, req.Resolution, adjudicatorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Transaction not found for adjudication")
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		} else if errors.Is(err, services.ErrNotAdjudicable) {
			logger.Warn("Invalid resolution", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to adjudicate transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to adjudicate transaction"})
		}
		return
	}

	resp := dto.AdjudicateResponse{Transaction: dto.ToTransactionResponse(txn)}
	if account != nil {
		ar := dto.ToAccountResponse(account)
		resp.Account = &ar
	}

	logger.Info("Transaction adjudicated", slog.String("status", string(txn.Status)))
	c.JSON(http.StatusOK, resp)
}

// exportSnapshot dumps the whole ledger as one consistent JSON document.
func (h *adminHandler) exportSnapshot(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	snapshot, err := h.ledgerService.SnapshotLedger(c.Request.Context())
	if err != nil {
		logger.Error("Failed to export ledger snapshot", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export snapshot"})
		return
	}

	// Credentials stay inside the service.
	for i := range snapshot.Accounts {
		snapshot.Accounts[i].PasswordHash = ""
	}

	c.JSON(http.StatusOK, snapshot)
}
