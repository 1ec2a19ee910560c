package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/marcusleow/bankline-be/internal/http/respond"
	"github.com/marcusleow/bankline-be/internal/middleware"
	"github.com/marcusleow/bankline-be/internal/models"
	"github.com/marcusleow/bankline-be/internal/models/dto"
	"github.com/marcusleow/bankline-be/internal/storage"
)

// PolicyHandler serves the investment policy catalog and enrollments.
type PolicyHandler struct {
	store storage.Store
}

// NewPolicyHandler constructs the handler.
func NewPolicyHandler(store storage.Store) *PolicyHandler {
	return &PolicyHandler{store: store}
}

// RegisterProtected attaches the policy routes to the authenticated mux.
func (h *PolicyHandler) RegisterProtected(mux *http.ServeMux) {
	mux.HandleFunc("/api/policies", h.handleList)
	mux.HandleFunc("/api/policies/{id}/enroll", h.handleEnroll)
}

func (h *PolicyHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	catalog, err := h.store.Policies(r.Context())
	if err != nil {
		log.Printf("policies: load catalog: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load policies")
		return
	}
	enrollments, err := h.store.UserPolicies(r.Context(), userID)
	if err != nil {
		log.Printf("policies: load enrollments for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to load policies")
		return
	}
	enrolledAt := make(map[int64]models.UserPolicy, len(enrollments))
	for _, e := range enrollments {
		enrolledAt[e.PolicyID] = e
	}

	entries := make([]dto.PolicyEntry, 0, len(catalog))
	for _, p := range catalog {
		entry := dto.PolicyEntry{Policy: p}
		if e, ok := enrolledAt[p.ID]; ok {
			entry.Enrolled = true
			investedAt := e.InvestedAt
			entry.InvestedAt = &investedAt
		}
		entries = append(entries, entry)
	}
	respond.JSON(w, http.StatusOK, "policies", entries)
}

func (h *PolicyHandler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	policyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || policyID <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid policy id")
		return
	}

	enrollment, err := h.store.EnrollPolicy(r.Context(), userID, policyID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyEnrolled):
			// Idempotent from the user's perspective: the earlier enrollment
			// stands, no new row, and the response is informational.
			respond.JSON(w, http.StatusOK, "you are already invested in this policy", nil)
		case errors.Is(err, storage.ErrPolicyLimit):
			respond.Error(w, http.StatusConflict, "you can hold at most 2 policies at a time")
		case errors.Is(err, storage.ErrNotFound):
			respond.Error(w, http.StatusNotFound, "policy not found")
		default:
			log.Printf("policies: enroll user %d in %d: %v", userID, policyID, err)
			respond.Error(w, http.StatusInternalServerError, "failed to enroll")
		}
		return
	}
	respond.JSON(w, http.StatusCreated, "enrolled successfully", enrollment)
}
