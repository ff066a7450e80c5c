package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"

	portssvc "github.com/mexihaiti/remesa-backend/internal/core/ports/services"
	"github.com/mexihaiti/remesa-backend/internal/core/services"
	"github.com/mexihaiti/remesa-backend/internal/dto"
	"github.com/mexihaiti/remesa-backend/internal/handlers"
	"github.com/mexihaiti/remesa-backend/internal/middleware"
	"github.com/mexihaiti/remesa-backend/internal/platform/config"
	"github.com/mexihaiti/remesa-backend/internal/repositories/memory"
)

const adminEmail = "ops@remesas.example"

// The suite drives the whole HTTP surface against real services and the
// in-memory store; only the process boundary is faked.
type HandlersTestSuite struct {
	suite.Suite
	router     *gin.Engine
	userToken  string
	userID     string
	adminToken string
}

func (suite *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(dto.RegisterValidations())

	cfg := &config.Config{
		JWTSecret:         "handlers-test-secret",
		JWTExpiryDuration: time.Hour,
		JWTIssuer:         "remesa-backend",
		ExchangeRate:      decimal.RequireFromString("5.85"),
		CommissionRate:    decimal.RequireFromString("0.06"),
		AdminEmails:       []string{adminEmail},
	}

	repo := memory.New(false)
	container := &portssvc.ServiceContainer{
		Account: services.NewAccountService(repo, cfg.AdminEmails),
		Ledger:  services.NewLedgerService(repo, cfg.ExchangeRate, cfg.CommissionRate, nil, nil, ""),
	}

	rate, err := limiter.NewRateFromFormatted("100-S")
	suite.Require().NoError(err)
	authLimiter := limiter.New(limitermem.NewStore(), rate)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	suite.router = gin.New()
	suite.router.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	handlers.RegisterRoutes(suite.router, cfg, container, authLimiter, logger)

	suite.userToken, suite.userID = suite.register("marie@example.com")
	suite.adminToken, _ = suite.register(adminEmail)
}

func (suite *HandlersTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) register(email string) (token, accountID string) {
	w := suite.do(http.MethodPost, "/auth/register", "", gin.H{
		"firstName": "Marie",
		"lastName":  "Joseph",
		"email":     email,
		"phone":     "+5215512345678",
		"password":  "secret-password",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp dto.LoginResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.Account.AccountID
}

// fund approves a top-up so the user has balance to transfer.
func (suite *HandlersTestSuite) fund(amount int64) {
	w := suite.do(http.MethodPost, "/api/v1/transactions/topup", suite.userToken, gin.H{
		"amountMXN":   amount,
		"receiptName": "deposito.jpg",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var txn dto.TransactionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &txn))

	w = suite.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/transactions/%s/adjudicate", txn.TransactionID), suite.adminToken, gin.H{
		"resolution": "COMPLETED",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *HandlersTestSuite) balance() decimal.Decimal {
	w := suite.do(http.MethodGet, "/api/v1/accounts/me", suite.userToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var account dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &account))
	return account.Balance
}

func (suite *HandlersTestSuite) TestRegister_DuplicateEmail() {
	w := suite.do(http.MethodPost, "/auth/register", "", gin.H{
		"firstName": "Marie",
		"lastName":  "Joseph",
		"email":     "marie@example.com",
		"phone":     "+5215512345678",
		"password":  "secret-password",
	})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestLogin() {
	w := suite.do(http.MethodPost, "/auth/login", "", gin.H{
		"email":    "marie@example.com",
		"password": "secret-password",
	})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/auth/login", "", gin.H{
		"email":    "marie@example.com",
		"password": "wrong-password",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestProtectedRoutesRequireToken() {
	w := suite.do(http.MethodGet, "/api/v1/accounts/me", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/accounts/me", "not-a-token", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestAdminRoutesRequireAdminClaim() {
	w := suite.do(http.MethodGet, "/api/v1/admin/accounts", suite.userToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/admin/accounts", suite.adminToken, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestTransferLifecycleOverHTTP() {
	suite.fund(1000)
	suite.True(suite.balance().Equal(decimal.NewFromInt(1000)))

	w := suite.do(http.MethodPost, "/api/v1/transactions/transfer", suite.userToken, gin.H{
		"amountMXN":     500,
		"service":       "NATCASH",
		"receiverName":  "Jean Baptiste",
		"receiverPhone": "+50937001234",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var txn dto.TransactionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &txn))
	suite.True(txn.TotalMXN.Equal(decimal.NewFromInt(530)))
	suite.True(txn.AmountHTG.Equal(decimal.NewFromInt(2925)))
	suite.True(suite.balance().Equal(decimal.NewFromInt(470)), "debit must land at submission")

	w = suite.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/transactions/%s/adjudicate", txn.TransactionID), suite.adminToken, gin.H{
		"resolution": "CANCELLED",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.AdjudicateResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("CANCELLED", string(resp.Transaction.Status))
	suite.True(suite.balance().Equal(decimal.NewFromInt(1000)), "cancellation must refund the full deduction")
}

func (suite *HandlersTestSuite) TestTransferInsufficientFunds() {
	w := suite.do(http.MethodPost, "/api/v1/transactions/transfer", suite.userToken, gin.H{
		"amountMXN":     500,
		"service":       "MONCASH",
		"receiverName":  "Jean Baptiste",
		"receiverPhone": "+50937001234",
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestSubmitTopUp_NonPositiveAmountRejected() {
	w := suite.do(http.MethodPost, "/api/v1/transactions/topup", suite.userToken, gin.H{
		"amountMXN":   -10,
		"receiptName": "deposito.jpg",
	})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/transactions/topup", suite.userToken, gin.H{
		"amountMXN":   0,
		"receiptName": "deposito.jpg",
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestQuoteTransfer() {
	w := suite.do(http.MethodGet, "/api/v1/transactions/transfer/quote?amount=500", suite.userToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var quote dto.TransferQuote
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &quote))
	suite.True(quote.FeeMXN.Equal(decimal.NewFromInt(30)))
	suite.True(quote.TotalMXN.Equal(decimal.NewFromInt(530)))
	suite.True(quote.AmountHTG.Equal(decimal.NewFromInt(2925)))
}

func (suite *HandlersTestSuite) TestAdjudicate_RepeatIsNoOp() {
	suite.fund(200)

	w := suite.do(http.MethodPost, "/api/v1/transactions/topup", suite.userToken, gin.H{
		"amountMXN":   100,
		"receiptName": "deposito2.jpg",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)
	var txn dto.TransactionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &txn))

	adjudicatePath := fmt.Sprintf("/api/v1/admin/transactions/%s/adjudicate", txn.TransactionID)
	w = suite.do(http.MethodPost, adjudicatePath, suite.adminToken, gin.H{"resolution": "COMPLETED"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.True(suite.balance().Equal(decimal.NewFromInt(300)))

	// Retry with the opposite resolution: state and balance must not move.
	w = suite.do(http.MethodPost, adjudicatePath, suite.adminToken, gin.H{"resolution": "CANCELLED"})
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp dto.AdjudicateResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("COMPLETED", string(resp.Transaction.Status))
	suite.True(suite.balance().Equal(decimal.NewFromInt(300)))
}

func (suite *HandlersTestSuite) TestAdjudicate_UnknownTransaction() {
	w := suite.do(http.MethodPost, "/api/v1/admin/transactions/nope/adjudicate", suite.adminToken, gin.H{
		"resolution": "COMPLETED",
	})
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestGetTransaction_OtherAccountHidden() {
	suite.fund(1000)

	w := suite.do(http.MethodPost, "/api/v1/transactions/topup", suite.userToken, gin.H{
		"amountMXN":   50,
		"receiptName": "deposito3.jpg",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)
	var txn dto.TransactionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &txn))

	otherToken, _ := suite.register("pierre@example.com")
	w = suite.do(http.MethodGet, "/api/v1/transactions/"+txn.TransactionID, otherToken, nil)
	suite.Equal(http.StatusNotFound, w.Code, "other users must not learn the transaction exists")

	w = suite.do(http.MethodGet, "/api/v1/transactions/"+txn.TransactionID, suite.adminToken, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestSnapshotExportOmitsCredentials() {
	w := suite.do(http.MethodGet, "/api/v1/admin/ledger/snapshot", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), "passwordHash")
}

func (suite *HandlersTestSuite) TestListTransactionsFilteredByStatus() {
	suite.fund(1000)

	w := suite.do(http.MethodPost, "/api/v1/transactions/topup", suite.userToken, gin.H{
		"amountMXN":   50,
		"receiptName": "deposito4.jpg",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/admin/transactions?status=PENDING", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp dto.ListTransactionsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp.Transactions, 1)
	suite.Equal("PENDING", string(resp.Transactions[0].Status))
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
