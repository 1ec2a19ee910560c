package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// TransactionTypeTransfer marks a peer-to-peer balance movement.
	TransactionTypeTransfer = "transfer"
)

// Transaction is an append-only record of a balance-affecting event between
// two accounts. Rows are never mutated or deleted once written.
type Transaction struct {
	ID            int64           `json:"id"`
	Reference     uuid.UUID       `json:"reference"`
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}
