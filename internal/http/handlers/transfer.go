package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/marcusleow/bankline-be/internal/http/respond"
	"github.com/marcusleow/bankline-be/internal/middleware"
	"github.com/marcusleow/bankline-be/internal/models/dto"
	"github.com/marcusleow/bankline-be/internal/storage"
)

const defaultHistoryLimit = 50

// TransferHandler serves money movement and transaction history.
type TransferHandler struct {
	store storage.Store
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(store storage.Store) *TransferHandler {
	return &TransferHandler{store: store}
}

// RegisterProtected attaches the transfer routes to the authenticated mux.
func (h *TransferHandler) RegisterProtected(mux *http.ServeMux) {
	mux.HandleFunc("/api/transfers", h.handleTransfer)
	mux.HandleFunc("/api/transactions", h.handleHistory)
}

func (h *TransferHandler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	recipient := strings.TrimSpace(req.RecipientAccount)
	if recipient == "" {
		respond.Error(w, http.StatusBadRequest, "recipient account is required")
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		respond.Error(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}

	account, err := h.store.AccountByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("transfer: load account for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	record, err := h.store.Transfer(r.Context(), account.ID, recipient, amount, strings.TrimSpace(req.Description))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrSameAccount):
			respond.Error(w, http.StatusBadRequest, "cannot send money to your own account")
		case errors.Is(err, storage.ErrBadAmount):
			respond.Error(w, http.StatusBadRequest, "amount must be greater than zero")
		case errors.Is(err, storage.ErrNotFound):
			respond.Error(w, http.StatusNotFound, "recipient account not found")
		case errors.Is(err, storage.ErrInsufficientFunds):
			respond.Error(w, http.StatusUnprocessableEntity, "insufficient funds")
		default:
			log.Printf("transfer: user %d -> %s: %v", userID, recipient, err)
			respond.Error(w, http.StatusInternalServerError, "transfer failed")
		}
		return
	}

	// Re-read for the updated balance; the movement itself already committed.
	account, err = h.store.AccountByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("transfer: reload account for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "transfer recorded but balance unavailable")
		return
	}

	respond.JSON(w, http.StatusOK, "transfer completed", dto.TransferResponse{Transaction: record, Balance: account.Balance})
}

func (h *TransferHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	account, err := h.store.AccountByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("history: load account for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	records, err := h.store.TransactionsByAccount(r.Context(), account.ID, limit)
	if err != nil {
		log.Printf("history: list transactions for account %d: %v", account.ID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	entries := make([]dto.TransactionEntry, 0, len(records))
	for _, record := range records {
		direction := "in"
		if record.FromAccountID == account.ID {
			direction = "out"
		}
		entries = append(entries, dto.TransactionEntry{Transaction: record, Direction: direction})
	}
	respond.JSON(w, http.StatusOK, "transactions", entries)
}
