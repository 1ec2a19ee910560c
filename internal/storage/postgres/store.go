package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/marcusleow/bankline-be/internal/models"
	"github.com/marcusleow/bankline-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store provides Postgres-backed persistence for users, accounts, the
// transaction journal, and policy enrollments.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store, runs migrations, and seeds the policy catalog.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT UNIQUE NOT NULL REFERENCES users(id),
			account_number TEXT UNIQUE NOT NULL,
			balance NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			reference UUID UNIQUE NOT NULL,
			from_account_id BIGINT NOT NULL REFERENCES accounts(id),
			to_account_id BIGINT NOT NULL REFERENCES accounts(id),
			amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
			type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_from_idx ON transactions (from_account_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS transactions_to_idx ON transactions (to_account_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS policies (
			id BIGINT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			risk_level TEXT NOT NULL,
			expected_return TEXT NOT NULL,
			min_investment NUMERIC(18,2) NOT NULL,
			description TEXT NOT NULL,
			goal TEXT NOT NULL,
			lock_in_years INT NOT NULL,
			liquidity TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_policies (
			user_id BIGINT NOT NULL REFERENCES users(id),
			policy_id BIGINT NOT NULL REFERENCES policies(id),
			invested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, policy_id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return s.seedPolicies(ctx)
}

func (s *Store) seedPolicies(ctx context.Context) error {
	const upsert = `
	INSERT INTO policies (id, name, risk_level, expected_return, min_investment, description, goal, lock_in_years, liquidity)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		risk_level = EXCLUDED.risk_level,
		expected_return = EXCLUDED.expected_return,
		min_investment = EXCLUDED.min_investment,
		description = EXCLUDED.description,
		goal = EXCLUDED.goal,
		lock_in_years = EXCLUDED.lock_in_years,
		liquidity = EXCLUDED.liquidity;
	`
	for _, p := range models.PolicyCatalog() {
		if _, err := s.pool.Exec(ctx, upsert, p.ID, p.Name, p.RiskLevel, p.ExpectedReturn, p.MinInvestment, p.Description, p.Goal, p.LockInYears, p.Liquidity); err != nil {
			return fmt.Errorf("seed policies: %w", err)
		}
	}
	return nil
}

// CreateUser inserts the user row and its account row in one transaction.
// The account number is derived from the generated user id.
func (s *Store) CreateUser(ctx context.Context, user models.User, initialBalance decimal.Decimal) (models.User, models.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.User{}, models.Account{}, err
	}
	defer tx.Rollback(ctx)

	const insertUser = `
	INSERT INTO users (username, email, phone, password_hash)
	VALUES ($1, $2, $3, $4)
	RETURNING id, username, email, phone, password_hash, created_at;
	`
	created, err := scanUser(tx.QueryRow(ctx, insertUser, user.Username, user.Email, user.Phone, user.PasswordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.User{}, models.Account{}, storage.ErrAlreadyExists
		}
		return models.User{}, models.Account{}, err
	}

	const insertAccount = `
	INSERT INTO accounts (user_id, account_number, balance)
	VALUES ($1, $2, $3)
	RETURNING id, user_id, account_number, balance, created_at;
	`
	account, err := scanAccount(tx.QueryRow(ctx, insertAccount, created.ID, models.AccountNumberFor(created.ID), initialBalance))
	if err != nil {
		return models.User{}, models.Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, models.Account{}, err
	}
	return created, account, nil
}

// FindUserByID fetches a user by primary key.
func (s *Store) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	const query = `
	SELECT id, username, email, phone, password_hash, created_at
	FROM users WHERE id = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// FindUserByUsername fetches a user by username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	const query = `
	SELECT id, username, email, phone, password_hash, created_at
	FROM users WHERE username = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, username))
}

// UpdateProfile mutates the optional contact fields of a user.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, email, phone string) (models.User, error) {
	const query = `
	UPDATE users SET email = $2, phone = $3
	WHERE id = $1
	RETURNING id, username, email, phone, password_hash, created_at;
	`
	return scanUser(s.pool.QueryRow(ctx, query, userID, email, phone))
}

// AccountByUserID fetches the account owned by a user.
func (s *Store) AccountByUserID(ctx context.Context, userID int64) (models.Account, error) {
	const query = `
	SELECT id, user_id, account_number, balance, created_at
	FROM accounts WHERE user_id = $1;
	`
	return scanAccount(s.pool.QueryRow(ctx, query, userID))
}

// AccountByNumber fetches an account by its public account number.
func (s *Store) AccountByNumber(ctx context.Context, number string) (models.Account, error) {
	const query = `
	SELECT id, user_id, account_number, balance, created_at
	FROM accounts WHERE account_number = $1;
	`
	return scanAccount(s.pool.QueryRow(ctx, query, number))
}

// Transfer moves amount between two accounts and journals the movement, all
// in one transaction. Both rows are locked with FOR UPDATE in id order so the
// balance check cannot race a concurrent transfer from the same account.
func (s *Store) Transfer(ctx context.Context, fromAccountID int64, toAccountNumber string, amount decimal.Decimal, description string) (models.Transaction, error) {
	if !amount.IsPositive() {
		return models.Transaction{}, storage.ErrBadAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Transaction{}, err
	}
	defer tx.Rollback(ctx)

	const lockAccounts = `
	SELECT id, account_number, balance
	FROM accounts
	WHERE id = $1 OR account_number = $2
	ORDER BY id
	FOR UPDATE;
	`
	rows, err := tx.Query(ctx, lockAccounts, fromAccountID, toAccountNumber)
	if err != nil {
		return models.Transaction{}, err
	}

	type lockedAccount struct {
		id      int64
		number  string
		balance decimal.Decimal
	}
	var locked []lockedAccount
	for rows.Next() {
		var a lockedAccount
		if err := rows.Scan(&a.id, &a.number, &a.balance); err != nil {
			rows.Close()
			return models.Transaction{}, err
		}
		locked = append(locked, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Transaction{}, err
	}

	var from, to *lockedAccount
	for i := range locked {
		switch {
		case locked[i].id == fromAccountID && locked[i].number == toAccountNumber:
			return models.Transaction{}, storage.ErrSameAccount
		case locked[i].id == fromAccountID:
			from = &locked[i]
		case locked[i].number == toAccountNumber:
			to = &locked[i]
		}
	}
	if from == nil || to == nil {
		return models.Transaction{}, storage.ErrNotFound
	}
	if from.balance.LessThan(amount) {
		return models.Transaction{}, storage.ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance - $1 WHERE id = $2`, amount, from.id); err != nil {
		return models.Transaction{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, amount, to.id); err != nil {
		return models.Transaction{}, err
	}

	const insertTransaction = `
	INSERT INTO transactions (reference, from_account_id, to_account_id, amount, type, description)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, reference, from_account_id, to_account_id, amount, type, description, created_at;
	`
	record, err := scanTransaction(tx.QueryRow(ctx, insertTransaction, uuid.New(), from.id, to.id, amount, models.TransactionTypeTransfer, description))
	if err != nil {
		return models.Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Transaction{}, err
	}
	return record, nil
}

// TransactionsByAccount lists journal rows touching an account, newest first.
func (s *Store) TransactionsByAccount(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	const query = `
	SELECT id, reference, from_account_id, to_account_id, amount, type, description, created_at
	FROM transactions
	WHERE from_account_id = $1 OR to_account_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2;
	`
	rows, err := s.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Policies returns the seeded catalog ordered by id.
func (s *Store) Policies(ctx context.Context) ([]models.Policy, error) {
	const query = `
	SELECT id, name, risk_level, expected_return, min_investment, description, goal, lock_in_years, liquidity
	FROM policies ORDER BY id;
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Policy
	for rows.Next() {
		var p models.Policy
		if err := rows.Scan(&p.ID, &p.Name, &p.RiskLevel, &p.ExpectedReturn, &p.MinInvestment, &p.Description, &p.Goal, &p.LockInYears, &p.Liquidity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EnrollPolicy inserts one enrollment row, holding the user row lock while
// the quota is checked so concurrent enrollments cannot exceed the cap.
func (s *Store) EnrollPolicy(ctx context.Context, userID, policyID int64) (models.UserPolicy, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.UserPolicy{}, err
	}
	defer tx.Rollback(ctx)

	var lockedID int64
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserPolicy{}, storage.ErrNotFound
		}
		return models.UserPolicy{}, err
	}

	// Duplicate check precedes the quota check so re-enrolling an existing
	// policy reports "already enrolled" even when the user is at the cap.
	var enrolled bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_policies WHERE user_id = $1 AND policy_id = $2)`, userID, policyID).Scan(&enrolled); err != nil {
		return models.UserPolicy{}, err
	}
	if enrolled {
		return models.UserPolicy{}, storage.ErrAlreadyEnrolled
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM user_policies WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return models.UserPolicy{}, err
	}
	if count >= models.MaxPoliciesPerUser {
		return models.UserPolicy{}, storage.ErrPolicyLimit
	}

	const insert = `
	INSERT INTO user_policies (user_id, policy_id)
	VALUES ($1, $2)
	RETURNING user_id, policy_id, invested_at;
	`
	var up models.UserPolicy
	if err := tx.QueryRow(ctx, insert, userID, policyID).Scan(&up.UserID, &up.PolicyID, &up.InvestedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return models.UserPolicy{}, storage.ErrAlreadyEnrolled
			case pgForeignKeyViolation:
				return models.UserPolicy{}, storage.ErrNotFound
			}
		}
		return models.UserPolicy{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.UserPolicy{}, err
	}
	return up, nil
}

// UserPolicies lists a user's enrollments, oldest first.
func (s *Store) UserPolicies(ctx context.Context, userID int64) ([]models.UserPolicy, error) {
	const query = `
	SELECT user_id, policy_id, invested_at
	FROM user_policies WHERE user_id = $1
	ORDER BY invested_at, policy_id;
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserPolicy
	for rows.Next() {
		var up models.UserPolicy
		if err := rows.Scan(&up.UserID, &up.PolicyID, &up.InvestedAt); err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Phone, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	if err := row.Scan(&account.ID, &account.UserID, &account.AccountNumber, &account.Balance, &account.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var record models.Transaction
	if err := row.Scan(&record.ID, &record.Reference, &record.FromAccountID, &record.ToAccountID, &record.Amount, &record.Type, &record.Description, &record.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, storage.ErrNotFound
		}
		return models.Transaction{}, err
	}
	return record, nil
}
