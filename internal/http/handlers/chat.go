package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/marcusleow/bankline-be/internal/auth"
	"github.com/marcusleow/bankline-be/internal/chat"
	"github.com/marcusleow/bankline-be/internal/models/dto"
	"github.com/marcusleow/bankline-be/internal/storage"
)

// ChatHandler serves the advisor chat endpoint. Unlike the envelope-based
// routes it answers with the bare {reply}/{error} shape the chat widget
// expects, so it verifies the bearer token itself instead of sitting behind
// the shared auth middleware.
type ChatHandler struct {
	store  storage.Store
	tokens *auth.TokenManager
	bridge *chat.Bridge
}

// NewChatHandler constructs the handler.
func NewChatHandler(store storage.Store, tokens *auth.TokenManager, bridge *chat.Bridge) *ChatHandler {
	return &ChatHandler{store: store, tokens: tokens, bridge: bridge}
}

// Register attaches the chat route to the mux.
func (h *ChatHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/chatbot", h.handleChat)
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.authenticate(r)
	if !ok {
		writeChat(w, http.StatusUnauthorized, dto.ChatResponse{Error: "authentication required"})
		return
	}
	var req dto.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChat(w, http.StatusBadRequest, dto.ChatResponse{Error: "invalid JSON payload"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeChat(w, http.StatusBadRequest, dto.ChatResponse{Error: "message is required"})
		return
	}

	user, err := h.store.FindUserByID(r.Context(), userID)
	if err != nil {
		log.Printf("chat: load user %d: %v", userID, err)
		writeChat(w, http.StatusInternalServerError, dto.ChatResponse{Error: "failed to load user context"})
		return
	}
	account, err := h.store.AccountByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("chat: load account for user %d: %v", userID, err)
		writeChat(w, http.StatusInternalServerError, dto.ChatResponse{Error: "failed to load user context"})
		return
	}
	enrolled, err := enrolledPolicies(r, h.store, userID)
	if err != nil {
		log.Printf("chat: load policies for user %d: %v", userID, err)
		writeChat(w, http.StatusInternalServerError, dto.ChatResponse{Error: "failed to load user context"})
		return
	}

	reply := h.bridge.Ask(r.Context(), userID, chat.UserContext{
		Username: user.Username,
		Balance:  account.Balance.StringFixed(2),
		Enrolled: enrolled,
	}, message)

	writeChat(w, http.StatusOK, dto.ChatResponse{Reply: reply})
}

func (h *ChatHandler) authenticate(r *http.Request) (int64, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return 0, false
	}
	userID, _, err := h.tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return 0, false
	}
	return userID, true
}

func writeChat(w http.ResponseWriter, status int, payload dto.ChatResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("chat: encode response failed: %v", err)
	}
}
