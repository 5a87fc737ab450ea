package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/luma-pay/luma_pay/internal/ledger"
)

// Service manages account lifecycle. Registration provisions the account's
// wallet so that "account has exactly one wallet" holds from the first moment.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService creates a new account service.
func NewService(repo Repository, ledgerBackend ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledgerBackend}
}

// RegisterInput carries onboarding data. InitialBalance is only honoured for
// seeded environments; production onboarding starts wallets at zero.
type RegisterInput struct {
	Kind           string
	Name           string
	Email          string
	Document       string
	Password       string
	InitialBalance int64
}

// Register creates an account and its wallet.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind == "" {
		kind = KindUser
	}
	if kind != KindUser && kind != KindMerchant {
		return Account{}, errors.New("kind must be user or merchant")
	}
	if strings.TrimSpace(input.Name) == "" {
		return Account{}, errors.New("name is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !strings.Contains(email, "@") {
		return Account{}, errors.New("a valid email is required")
	}
	if strings.TrimSpace(input.Document) == "" {
		return Account{}, errors.New("document is required")
	}
	if len(input.Password) < 8 {
		return Account{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	acc := Account{
		ID:           uuid.New().String(),
		Kind:         kind,
		Name:         input.Name,
		Email:        email,
		Document:     input.Document,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return Account{}, err
	}

	accountID, err := uuid.Parse(acc.ID)
	if err != nil {
		return Account{}, err
	}
	if err := s.ledger.EnsureWallet(ctx, accountID, input.InitialBalance); err != nil {
		return Account{}, err
	}

	return acc, nil
}

// Authenticate verifies credentials and returns the matching account.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return Account{}, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(creds.Password)); err != nil {
		return Account{}, errors.New("invalid credentials")
	}
	return acc, nil
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}
