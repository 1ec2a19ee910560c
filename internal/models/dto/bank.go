package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/marcusleow/bankline-be/internal/models"
)

type TransferRequest struct {
	RecipientAccount string `json:"recipient_account"`
	Amount           string `json:"amount"`
	Description      string `json:"description"`
}

type TransferResponse struct {
	Transaction models.Transaction `json:"transaction"`
	Balance     decimal.Decimal    `json:"balance"`
}

// TransactionEntry is a history row annotated from the viewer's side.
type TransactionEntry struct {
	models.Transaction
	Direction string `json:"direction"` // "in" or "out"
}

type DashboardResponse struct {
	User     models.User     `json:"user"`
	Account  models.Account  `json:"account"`
	Policies []models.Policy `json:"policies"`
}

type ProfileUpdateRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PolicyEntry decorates a catalog row with the caller's enrollment state.
type PolicyEntry struct {
	models.Policy
	Enrolled   bool       `json:"enrolled"`
	InvestedAt *time.Time `json:"invested_at,omitempty"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}
