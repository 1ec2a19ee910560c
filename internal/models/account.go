package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the single balance-bearing record owned by a user. Balances are
// decimals to avoid floating-point drift on money math.
type Account struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AccountNumberFor derives the human-facing account number from a user id.
// The frontend validates the AC###### shape, so the mapping stays fixed.
func AccountNumberFor(userID int64) string {
	return fmt.Sprintf("AC%06d", 100000+userID)
}
