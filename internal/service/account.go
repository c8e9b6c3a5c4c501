package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradehaven/wallet-api/internal/domain"
	"github.com/tradehaven/wallet-api/internal/models"
	"github.com/tradehaven/wallet-api/internal/repository"
)

// AccountService covers registration, login and the non-mutating query
// operations (balance read, transaction history).
type AccountService struct {
	store      QueryStore
	bcryptCost int
}

func NewAccountService(store QueryStore) *AccountService {
	return &AccountService{store: store, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the password hashing cost. Values outside the
// bcrypt-supported range are ignored.
func (s *AccountService) WithBcryptCost(cost int) *AccountService {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.bcryptCost = cost
	}
	return s
}

// Register creates the user and their account in one transaction. New
// accounts start with an empty wallet and the demo grant.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, models.ErrValidationFailed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}

	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		if err := q.CreateUser(ctx, user); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return models.ErrEmailTaken
			}
			return err
		}
		account := &models.Account{
			ID:               uuid.New(),
			UserID:           user.ID,
			DemoBalanceCents: domain.DefaultDemoBalanceCents,
		}
		return q.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies the credentials and returns the user. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.Queries().GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrInvalidLogin
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.ErrInvalidLogin
	}
	return user, nil
}

// GetBalance returns the caller's current balances. Plain consistent read;
// no transactional scope required.
func (s *AccountService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	account, err := s.store.Queries().GetAccountByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// GetHistory returns the caller's transactions newest-first. With no
// paging parameters every row is returned.
func (s *AccountService) GetHistory(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Transaction, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 0 // unpaginated
	}
	offset := (page - 1) * pageSize
	return s.store.Queries().ListTransactionsByUser(ctx, userID, pageSize, offset)
}
