package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/marcusleow/bankline-be/internal/http/respond"
	"github.com/marcusleow/bankline-be/internal/middleware"
	"github.com/marcusleow/bankline-be/internal/models"
	"github.com/marcusleow/bankline-be/internal/models/dto"
	"github.com/marcusleow/bankline-be/internal/storage"
)

// AccountHandler serves the dashboard and profile endpoints.
type AccountHandler struct {
	store storage.Store
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(store storage.Store) *AccountHandler {
	return &AccountHandler{store: store}
}

// RegisterProtected attaches the account routes to the authenticated mux.
func (h *AccountHandler) RegisterProtected(mux *http.ServeMux) {
	mux.HandleFunc("/api/dashboard", h.handleDashboard)
	mux.HandleFunc("/api/profile", h.handleProfile)
}

func (h *AccountHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.store.FindUserByID(r.Context(), userID)
	if err != nil {
		log.Printf("dashboard: load user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	account, err := h.store.AccountByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("dashboard: load account for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	enrolled, err := enrolledPolicies(r, h.store, userID)
	if err != nil {
		log.Printf("dashboard: load policies for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	respond.JSON(w, http.StatusOK, "dashboard", dto.DashboardResponse{User: user, Account: account, Policies: enrolled})
}

func (h *AccountHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r)
	case http.MethodPut:
		h.updateProfile(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AccountHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.store.FindUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("profile: load user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	respond.JSON(w, http.StatusOK, "profile", user)
}

func (h *AccountHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req dto.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		respond.Error(w, http.StatusBadRequest, "email address is invalid")
		return
	}
	user, err := h.store.UpdateProfile(r.Context(), userID, email, strings.TrimSpace(req.Phone))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("profile: update user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	respond.JSON(w, http.StatusOK, "profile updated", user)
}

// enrolledPolicies resolves a user's enrollments against the catalog.
func enrolledPolicies(r *http.Request, store storage.Store, userID int64) ([]models.Policy, error) {
	enrollments, err := store.UserPolicies(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return nil, nil
	}
	catalog, err := store.Policies(r.Context())
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Policy, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}
	out := make([]models.Policy, 0, len(enrollments))
	for _, e := range enrollments {
		if p, ok := byID[e.PolicyID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
