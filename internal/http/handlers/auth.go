package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/marcusleow/bankline-be/internal/auth"
	"github.com/marcusleow/bankline-be/internal/config"
	"github.com/marcusleow/bankline-be/internal/http/respond"
	"github.com/marcusleow/bankline-be/internal/middleware"
	"github.com/marcusleow/bankline-be/internal/models"
	"github.com/marcusleow/bankline-be/internal/models/dto"
	"github.com/marcusleow/bankline-be/internal/storage"
)

// SessionEnder drops server-side conversation state when a user logs out.
type SessionEnder interface {
	EndSession(userID int64)
}

// AuthHandler owns the register/login/logout endpoints.
type AuthHandler struct {
	store    storage.Store
	tokens   *auth.TokenManager
	cfg      *config.Config
	sessions SessionEnder
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.Store, tokens *auth.TokenManager, cfg *config.Config, sessions SessionEnder) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, cfg: cfg, sessions: sessions}
}

// Register attaches the public auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/register", h.handleRegister)
	mux.HandleFunc("/login", h.handleLogin)
}

// RegisterProtected attaches routes that require an authenticated caller.
func (h *AuthHandler) RegisterProtected(mux *http.ServeMux) {
	mux.HandleFunc("/logout", h.handleLogout)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	phone := normalizePhone(req)
	if err := validateCredentials(req.Username, req.Email, req.Password); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		Phone:        phone,
		PasswordHash: passwordHash,
	}
	created, account, err := h.store.CreateUser(r.Context(), user, h.cfg.InitBalance)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "username is already taken")
		default:
			log.Printf("create user error: %v", err)
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respond.JSON(w, http.StatusCreated, "account created successfully", dto.RegisterResponse{User: created, Account: account})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}
	user, err := h.store.FindUserByUsername(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Printf("login failed for %q: %v", identifier, err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	account, err := h.store.AccountByUserID(r.Context(), user.ID)
	if err != nil {
		log.Printf("login: account lookup for user %d: %v", user.ID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch account")
		return
	}
	token, err := h.tokens.Generate(user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user, Account: account})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	h.sessions.EndSession(userID)
	respond.JSON(w, http.StatusOK, "logged out", nil)
}

func normalizePhone(req dto.RegisterRequest) string {
	if trimmed := strings.TrimSpace(req.Phone); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(req.PhoneNumber)
}

func validateCredentials(username, email, password string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username is required")
	}
	if email := strings.TrimSpace(email); email != "" && !strings.Contains(email, "@") {
		return errors.New("email address is invalid")
	}
	if len(strings.TrimSpace(password)) < 6 || !utf8.ValidString(password) {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
