package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/mexihaiti/remesa-backend/internal/apperrors"
	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	portsrepo "github.com/mexihaiti/remesa-backend/internal/core/ports/repositories"
	portssvc "github.com/mexihaiti/remesa-backend/internal/core/ports/services"
	"github.com/mexihaiti/remesa-backend/internal/core/services"
	"github.com/mexihaiti/remesa-backend/internal/dto"
	"github.com/mexihaiti/remesa-backend/internal/utils"
)

// --- Mock LedgerRepository ---
type MockLedgerRepository struct {
	mock.Mock
}

var _ portsrepo.LedgerRepositoryFacade = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedgerRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedgerRepository) FindAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockLedgerRepository) SaveTransaction(ctx context.Context, txn domain.Transaction, balanceDelta decimal.Decimal) error {
	args := m.Called(ctx, txn, balanceDelta)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) FindTransactions(ctx context.Context, filter portsrepo.TransactionFilter) ([]domain.Transaction, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ResolveTransaction(ctx context.Context, transactionID string, status domain.TransactionStatus, balanceDelta decimal.Decimal, resolverID string, resolvedAt time.Time) error {
	args := m.Called(ctx, transactionID, status, balanceDelta, resolverID, resolvedAt)
	return args.Error(0)
}

func (m *MockLedgerRepository) Snapshot(ctx context.Context) (*domain.LedgerSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerSnapshot), args.Error(1)
}

// --- Test Suite Setup ---
type AccountServiceTestSuite struct {
	suite.Suite
	mockRepo *MockLedgerRepository
	service  portssvc.AccountSvcFacade
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockLedgerRepository)
	suite.service = services.NewAccountService(suite.mockRepo, []string{"Ops@remesas.example"})
}

func (suite *AccountServiceTestSuite) TestRegister_Success() {
	ctx := context.Background()
	req := dto.RegisterRequest{
		FirstName: "Marie",
		LastName:  "Joseph",
		Email:     "marie@example.com",
		Phone:     "+5215512345678",
		Password:  "secret-password",
	}

	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()

	account, err := suite.service.Register(ctx, req)

	suite.Require().NoError(err)
	suite.Require().NotNil(account)
	suite.NotEmpty(account.AccountID)
	suite.True(account.Balance.IsZero(), "new accounts must start at a zero balance")
	suite.False(account.IsAdmin)
	suite.NotEqual(req.Password, account.PasswordHash)
	suite.True(utils.CheckPasswordHash(req.Password, account.PasswordHash))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestRegister_AdminAllowList() {
	ctx := context.Background()
	req := dto.RegisterRequest{
		FirstName: "Ana",
		LastName:  "Ops",
		Email:     "ops@remesas.example",
		Phone:     "+5215500000000",
		Password:  "secret-password",
	}

	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()

	account, err := suite.service.Register(ctx, req)

	suite.Require().NoError(err)
	suite.True(account.IsAdmin, "allow-listed email must be granted admin")
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestRegister_DuplicateEmail() {
	ctx := context.Background()
	req := dto.RegisterRequest{
		FirstName: "Marie",
		LastName:  "Joseph",
		Email:     "marie@example.com",
		Phone:     "+5215512345678",
		Password:  "secret-password",
	}

	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(apperrors.ErrDuplicate).Once()

	_, err := suite.service.Register(ctx, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestAuthenticate_Success() {
	ctx := context.Background()
	hash, err := utils.HashPassword("secret-password")
	suite.Require().NoError(err)

	stored := &domain.Account{
		AccountID:    "acc-1",
		Email:        "marie@example.com",
		PasswordHash: hash,
	}
	suite.mockRepo.On("FindAccountByEmail", ctx, "marie@example.com").Return(stored, nil).Once()

	account, err := suite.service.Authenticate(ctx, "marie@example.com", "secret-password")

	suite.Require().NoError(err)
	suite.Equal("acc-1", account.AccountID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestAuthenticate_WrongPassword() {
	ctx := context.Background()
	hash, err := utils.HashPassword("secret-password")
	suite.Require().NoError(err)

	stored := &domain.Account{
		AccountID:    "acc-1",
		Email:        "marie@example.com",
		PasswordHash: hash,
	}
	suite.mockRepo.On("FindAccountByEmail", ctx, "marie@example.com").Return(stored, nil).Once()

	_, err = suite.service.Authenticate(ctx, "marie@example.com", "not-the-password")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestAuthenticate_UnknownEmail() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByEmail", ctx, "nobody@example.com").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.Authenticate(ctx, "nobody@example.com", "whatever")

	suite.Require().Error(err)
	// Unknown email and wrong password must be indistinguishable.
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestGetAccountByID_NotFound() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByID", ctx, "missing").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.GetAccountByID(ctx, "missing")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestAccountService(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
