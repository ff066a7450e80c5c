package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mexihaiti/remesa-backend/internal/apperrors"
	"github.com/mexihaiti/remesa-backend/internal/core/domain"
	portsrepo "github.com/mexihaiti/remesa-backend/internal/core/ports/repositories"
	portssvc "github.com/mexihaiti/remesa-backend/internal/core/ports/services"
	"github.com/mexihaiti/remesa-backend/internal/dto"
	"github.com/mexihaiti/remesa-backend/internal/utils"
)

// accountService provides account registration and authentication.
type accountService struct {
	repo        portsrepo.LedgerRepositoryFacade
	adminEmails map[string]struct{}
}

// NewAccountService creates a new AccountService. adminEmails is the
// explicit allow-list that grants the admin capability at registration;
// there is no other path to the admin flag.
func NewAccountService(repo portsrepo.LedgerRepositoryFacade, adminEmails []string) portssvc.AccountSvcFacade {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		allow[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &accountService{repo: repo, adminEmails: allow}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// Register creates a new account. The balance is fixed at zero; only the
// lifecycle engine's balance-adjustment operations may change it later.
func (s *accountService) Register(ctx context.Context, req dto.RegisterRequest) (*domain.Account, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	accountID := uuid.NewString()
	_, isAdmin := s.adminEmails[strings.ToLower(email)]

	account := domain.Account{
		AccountID:    accountID,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: passwordHash,
		Balance:      decimal.Zero,
		IsAdmin:      isAdmin,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     accountID,
			LastUpdatedAt: now,
			LastUpdatedBy: accountID,
		},
	}

	if err := s.repo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email %s is already registered", apperrors.ErrDuplicate, email)
		}
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	return &account, nil
}

// Authenticate resolves an account by login email and verifies the
// password. Unknown email and wrong password are deliberately not
// distinguished.
func (s *accountService) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := s.repo.FindAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve account by email: %w", err)
	}

	if !utils.CheckPasswordHash(password, account.PasswordHash) {
		return nil, apperrors.ErrUnauthorized
	}

	return account, nil
}

// GetAccountByID retrieves an account by ID.
func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return account, nil
}

// ListAccounts retrieves a paginated list of accounts.
func (s *accountService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	accounts, err := s.repo.FindAccounts(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}
