package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/marcusleow/bankline-be/internal/models"
	"github.com/marcusleow/bankline-be/internal/storage"
)

func newTestUser(t *testing.T, s *Store, username, balance string) (models.User, models.Account) {
	t.Helper()
	user, account, err := s.CreateUser(context.Background(), models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}, mustDecimal(t, balance))
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user, account
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestCreateUserDerivesAccount(t *testing.T) {
	s := NewStore()
	user, account := newTestUser(t, s, "alice", "1000.00")

	if user.ID == 0 {
		t.Fatal("user id not assigned")
	}
	if account.UserID != user.ID {
		t.Fatalf("account owner = %d, want %d", account.UserID, user.ID)
	}
	if want := models.AccountNumberFor(user.ID); account.AccountNumber != want {
		t.Fatalf("account number = %q, want %q", account.AccountNumber, want)
	}
	if !account.Balance.Equal(mustDecimal(t, "1000.00")) {
		t.Fatalf("starting balance = %s, want 1000.00", account.Balance)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := NewStore()
	newTestUser(t, s, "alice", "1000.00")
	_, _, err := s.CreateUser(context.Background(), models.User{Username: "alice", PasswordHash: "x"}, decimal.Zero)
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate username error = %v, want ErrAlreadyExists", err)
	}
}

func TestTransferMovesBalancesAndJournals(t *testing.T) {
	s := NewStore()
	_, aliceAcct := newTestUser(t, s, "alice", "1000.00")
	_, bobAcct := newTestUser(t, s, "bob", "50.00")

	record, err := s.Transfer(context.Background(), aliceAcct.ID, bobAcct.AccountNumber, mustDecimal(t, "200.00"), "rent")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	after := func(id int64) decimal.Decimal {
		t.Helper()
		for _, a := range []models.Account{mustAccount(t, s, "alice"), mustAccount(t, s, "bob")} {
			if a.ID == id {
				return a.Balance
			}
		}
		t.Fatalf("account %d not found", id)
		return decimal.Zero
	}

	if got := after(aliceAcct.ID); !got.Equal(mustDecimal(t, "800.00")) {
		t.Fatalf("sender balance = %s, want 800.00", got)
	}
	if got := after(bobAcct.ID); !got.Equal(mustDecimal(t, "250.00")) {
		t.Fatalf("recipient balance = %s, want 250.00", got)
	}
	if record.FromAccountID != aliceAcct.ID || record.ToAccountID != bobAcct.ID {
		t.Fatalf("journal row accounts = (%d, %d), want (%d, %d)", record.FromAccountID, record.ToAccountID, aliceAcct.ID, bobAcct.ID)
	}
	if record.Type != models.TransactionTypeTransfer {
		t.Fatalf("journal row type = %q", record.Type)
	}

	history, err := s.TransactionsByAccount(context.Background(), aliceAcct.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("journal rows = %d, want 1", len(history))
	}
}

func mustAccount(t *testing.T, s *Store, username string) models.Account {
	t.Helper()
	user, err := s.FindUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("find %s: %v", username, err)
	}
	account, err := s.AccountByUserID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("account of %s: %v", username, err)
	}
	return account
}

func TestTransferRejections(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		to      func(alice, bob models.Account) string
		wantErr error
	}{
		{"insufficient funds", "2000.00", func(_, bob models.Account) string { return bob.AccountNumber }, storage.ErrInsufficientFunds},
		{"self transfer", "10.00", func(alice, _ models.Account) string { return alice.AccountNumber }, storage.ErrSameAccount},
		{"zero amount", "0", func(_, bob models.Account) string { return bob.AccountNumber }, storage.ErrBadAmount},
		{"negative amount", "-5.00", func(_, bob models.Account) string { return bob.AccountNumber }, storage.ErrBadAmount},
		{"unknown recipient", "10.00", func(models.Account, models.Account) string { return "AC999999" }, storage.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			_, aliceAcct := newTestUser(t, s, "alice", "1000.00")
			_, bobAcct := newTestUser(t, s, "bob", "50.00")

			_, err := s.Transfer(context.Background(), aliceAcct.ID, tc.to(aliceAcct, bobAcct), mustDecimal(t, tc.amount), "")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("transfer error = %v, want %v", err, tc.wantErr)
			}

			// Rejections must leave no trace.
			if got := mustAccount(t, s, "alice").Balance; !got.Equal(mustDecimal(t, "1000.00")) {
				t.Fatalf("sender balance changed to %s", got)
			}
			if got := mustAccount(t, s, "bob").Balance; !got.Equal(mustDecimal(t, "50.00")) {
				t.Fatalf("recipient balance changed to %s", got)
			}
			history, err := s.TransactionsByAccount(context.Background(), aliceAcct.ID, 10)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(history) != 0 {
				t.Fatalf("journal rows after rejection = %d, want 0", len(history))
			}
		})
	}
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	s := NewStore()
	_, aliceAcct := newTestUser(t, s, "alice", "100.00")
	_, bobAcct := newTestUser(t, s, "bob", "0.00")

	// 50 concurrent attempts of 10.00 against a 100.00 balance: exactly 10
	// may succeed; the rest must fail with insufficient funds.
	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Transfer(context.Background(), aliceAcct.ID, bobAcct.AccountNumber, mustDecimal(t, "10.00"), "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, storage.ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected transfer error: %v", err)
		}
	}
	if succeeded != 10 || rejected != attempts-10 {
		t.Fatalf("succeeded = %d, rejected = %d", succeeded, rejected)
	}
	if got := mustAccount(t, s, "alice").Balance; !got.Equal(decimal.Zero) {
		t.Fatalf("sender balance = %s, want 0", got)
	}
	if got := mustAccount(t, s, "bob").Balance; !got.Equal(mustDecimal(t, "100.00")) {
		t.Fatalf("recipient balance = %s, want 100.00", got)
	}
}

func TestEnrollPolicyQuota(t *testing.T) {
	s := NewStore()
	alice, _ := newTestUser(t, s, "alice", "1000.00")

	for _, policyID := range []int64{1, 2} {
		if _, err := s.EnrollPolicy(context.Background(), alice.ID, policyID); err != nil {
			t.Fatalf("enroll policy %d: %v", policyID, err)
		}
	}

	_, err := s.EnrollPolicy(context.Background(), alice.ID, 3)
	if !errors.Is(err, storage.ErrPolicyLimit) {
		t.Fatalf("third enrollment error = %v, want ErrPolicyLimit", err)
	}

	enrollments, err := s.UserPolicies(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("user policies: %v", err)
	}
	if len(enrollments) != models.MaxPoliciesPerUser {
		t.Fatalf("enrollments = %d, want %d", len(enrollments), models.MaxPoliciesPerUser)
	}
}

func TestEnrollPolicyDuplicateIsIdempotent(t *testing.T) {
	s := NewStore()
	alice, _ := newTestUser(t, s, "alice", "1000.00")

	if _, err := s.EnrollPolicy(context.Background(), alice.ID, 1); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	_, err := s.EnrollPolicy(context.Background(), alice.ID, 1)
	if !errors.Is(err, storage.ErrAlreadyEnrolled) {
		t.Fatalf("duplicate enroll error = %v, want ErrAlreadyEnrolled", err)
	}

	enrollments, _ := s.UserPolicies(context.Background(), alice.ID)
	if len(enrollments) != 1 {
		t.Fatalf("enrollments after duplicate = %d, want 1", len(enrollments))
	}
}

func TestEnrollPolicyDuplicateReportedEvenAtCap(t *testing.T) {
	s := NewStore()
	alice, _ := newTestUser(t, s, "alice", "1000.00")
	for _, policyID := range []int64{1, 2} {
		if _, err := s.EnrollPolicy(context.Background(), alice.ID, policyID); err != nil {
			t.Fatalf("enroll policy %d: %v", policyID, err)
		}
	}
	_, err := s.EnrollPolicy(context.Background(), alice.ID, 2)
	if !errors.Is(err, storage.ErrAlreadyEnrolled) {
		t.Fatalf("re-enroll at cap error = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestEnrollPolicyUnknownPolicy(t *testing.T) {
	s := NewStore()
	alice, _ := newTestUser(t, s, "alice", "1000.00")
	_, err := s.EnrollPolicy(context.Background(), alice.ID, 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown policy error = %v, want ErrNotFound", err)
	}
}

func TestConcurrentEnrollmentsRespectCap(t *testing.T) {
	s := NewStore()
	alice, _ := newTestUser(t, s, "alice", "1000.00")

	var wg sync.WaitGroup
	for policyID := int64(1); policyID <= 8; policyID++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = s.EnrollPolicy(context.Background(), alice.ID, id)
		}(policyID)
	}
	wg.Wait()

	enrollments, err := s.UserPolicies(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("user policies: %v", err)
	}
	if len(enrollments) > models.MaxPoliciesPerUser {
		t.Fatalf("enrollments = %d, exceeds cap %d", len(enrollments), models.MaxPoliciesPerUser)
	}
}
