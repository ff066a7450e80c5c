package services

import (
	"context"

	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	"github.com/mexihaiti/remesa-backend/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccountByID retrieves an account by ID.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts (admin dashboard).
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// Register creates a new account with a zero balance.
	Register(ctx context.Context, req dto.RegisterRequest) (*domain.Account, error)
}

// AccountAuthSvc defines operations for account authentication
type AccountAuthSvc interface {
	// Authenticate resolves an account by email and verifies the password.
	Authenticate(ctx context.Context, email, password string) (*domain.Account, error)
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
	AccountAuthSvc
}
