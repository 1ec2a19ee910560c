package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/marcusleow/bankline-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInsufficientFunds indicates the sender balance cannot cover a transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrSameAccount indicates a transfer where sender and recipient match.
var ErrSameAccount = errors.New("cannot transfer to the same account")

// ErrBadAmount indicates a non-positive transfer amount.
var ErrBadAmount = errors.New("amount must be greater than zero")

// ErrPolicyLimit indicates the user already holds the maximum number of policies.
var ErrPolicyLimit = errors.New("policy limit reached")

// ErrAlreadyEnrolled indicates a duplicate (user, policy) enrollment.
var ErrAlreadyEnrolled = errors.New("already enrolled in policy")

// UserStore captures identity persistence needed by the auth handlers. User
// and account creation is a single atomic unit: no user row without its
// account row.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User, initialBalance decimal.Decimal) (models.User, models.Account, error)
	FindUserByID(ctx context.Context, id int64) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
	UpdateProfile(ctx context.Context, userID int64, email, phone string) (models.User, error)
}

// LedgerStore captures account and money-movement persistence. Transfer is
// the one write path with real invariants: debit, credit, and the journal
// insert land together or not at all, and the balance check is serialized
// against concurrent transfers from the same account.
type LedgerStore interface {
	AccountByUserID(ctx context.Context, userID int64) (models.Account, error)
	AccountByNumber(ctx context.Context, number string) (models.Account, error)
	Transfer(ctx context.Context, fromAccountID int64, toAccountNumber string, amount decimal.Decimal, description string) (models.Transaction, error)
	TransactionsByAccount(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error)
}

// PolicyStore captures the static catalog and enrollment persistence.
type PolicyStore interface {
	Policies(ctx context.Context) ([]models.Policy, error)
	EnrollPolicy(ctx context.Context, userID, policyID int64) (models.UserPolicy, error)
	UserPolicies(ctx context.Context, userID int64) ([]models.UserPolicy, error)
}

// Store is the full persistence surface the server wires against.
type Store interface {
	UserStore
	LedgerStore
	PolicyStore
}
