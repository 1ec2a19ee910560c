// Package memory implements storage.Store with in-process state behind a
// single mutex. Every operation runs in one critical section, so the transfer
// balance check and the debit/credit pair are serialized the same way the
// Postgres store serializes them with row locks. Used by tests and by the
// memory storage mode for local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marcusleow/bankline-be/internal/models"
	"github.com/marcusleow/bankline-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store holds all state in maps keyed by id.
type Store struct {
	mu            sync.Mutex
	nextUserID    int64
	nextAccountID int64
	nextTxID      int64
	users         map[int64]models.User
	accounts      map[int64]models.Account
	transactions  []models.Transaction
	policies      []models.Policy
	enrollments   map[int64][]models.UserPolicy
}

// NewStore returns an empty store pre-seeded with the policy catalog.
func NewStore() *Store {
	return &Store{
		users:       make(map[int64]models.User),
		accounts:    make(map[int64]models.Account),
		policies:    models.PolicyCatalog(),
		enrollments: make(map[int64][]models.UserPolicy),
	}
}

// CreateUser inserts the user and its account together.
func (s *Store) CreateUser(_ context.Context, user models.User, initialBalance decimal.Decimal) (models.User, models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return models.User{}, models.Account{}, storage.ErrAlreadyExists
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now()
	s.users[user.ID] = user

	s.nextAccountID++
	account := models.Account{
		ID:            s.nextAccountID,
		UserID:        user.ID,
		AccountNumber: models.AccountNumberFor(user.ID),
		Balance:       initialBalance,
		CreatedAt:     user.CreatedAt,
	}
	s.accounts[account.ID] = account

	return user, account, nil
}

// FindUserByID fetches a user by id.
func (s *Store) FindUserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// FindUserByUsername fetches a user by username.
func (s *Store) FindUserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

// UpdateProfile mutates the contact fields of a user.
func (s *Store) UpdateProfile(_ context.Context, userID int64, email, phone string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	user.Email = email
	user.Phone = phone
	s.users[userID] = user
	return user, nil
}

// AccountByUserID fetches the account owned by a user.
func (s *Store) AccountByUserID(_ context.Context, userID int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.UserID == userID {
			return account, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

// AccountByNumber fetches an account by its public number.
func (s *Store) AccountByNumber(_ context.Context, number string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accountByNumberLocked(number)
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return account, nil
}

func (s *Store) accountByNumberLocked(number string) (models.Account, bool) {
	for _, account := range s.accounts {
		if account.AccountNumber == number {
			return account, true
		}
	}
	return models.Account{}, false
}

// Transfer applies the debit, credit, and journal append in one critical
// section. Any precondition failure leaves state untouched.
func (s *Store) Transfer(_ context.Context, fromAccountID int64, toAccountNumber string, amount decimal.Decimal, description string) (models.Transaction, error) {
	if !amount.IsPositive() {
		return models.Transaction{}, storage.ErrBadAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[fromAccountID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	if from.AccountNumber == toAccountNumber {
		return models.Transaction{}, storage.ErrSameAccount
	}
	to, ok := s.accountByNumberLocked(toAccountNumber)
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	if from.Balance.LessThan(amount) {
		return models.Transaction{}, storage.ErrInsufficientFunds
	}

	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)
	s.accounts[from.ID] = from
	s.accounts[to.ID] = to

	s.nextTxID++
	record := models.Transaction{
		ID:            s.nextTxID,
		Reference:     uuid.New(),
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        amount,
		Type:          models.TransactionTypeTransfer,
		Description:   description,
		CreatedAt:     time.Now(),
	}
	s.transactions = append(s.transactions, record)
	return record, nil
}

// TransactionsByAccount lists journal rows touching an account, newest first.
func (s *Store) TransactionsByAccount(_ context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for i := len(s.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		record := s.transactions[i]
		if record.FromAccountID == accountID || record.ToAccountID == accountID {
			out = append(out, record)
		}
	}
	return out, nil
}

// Policies returns the seeded catalog.
func (s *Store) Policies(_ context.Context) ([]models.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Policy, len(s.policies))
	copy(out, s.policies)
	return out, nil
}

// EnrollPolicy appends one enrollment if the quota and uniqueness rules hold.
func (s *Store) EnrollPolicy(_ context.Context, userID, policyID int64) (models.UserPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return models.UserPolicy{}, storage.ErrNotFound
	}
	known := false
	for _, p := range s.policies {
		if p.ID == policyID {
			known = true
			break
		}
	}
	if !known {
		return models.UserPolicy{}, storage.ErrNotFound
	}

	current := s.enrollments[userID]
	for _, up := range current {
		if up.PolicyID == policyID {
			return models.UserPolicy{}, storage.ErrAlreadyEnrolled
		}
	}
	if len(current) >= models.MaxPoliciesPerUser {
		return models.UserPolicy{}, storage.ErrPolicyLimit
	}

	up := models.UserPolicy{UserID: userID, PolicyID: policyID, InvestedAt: time.Now()}
	s.enrollments[userID] = append(current, up)
	return up, nil
}

// UserPolicies lists a user's enrollments in insertion order.
func (s *Store) UserPolicies(_ context.Context, userID int64) ([]models.UserPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.enrollments[userID]
	out := make([]models.UserPolicy, len(current))
	copy(out, current)
	return out, nil
}
