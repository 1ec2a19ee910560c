package chat

import "sync"

// History keeps per-user conversation turns with a hard cap. When a user's
// history exceeds the limit the oldest turns are evicted first, so the prompt
// never grows without bound across a long session.
type History struct {
	mu     sync.Mutex
	limit  int
	byUser map[int64][]Message
}

// NewHistory creates a history store; limit is the maximum retained turns per user.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{limit: limit, byUser: make(map[int64][]Message)}
}

// Append records one turn for a user, evicting the oldest beyond the cap.
func (h *History) Append(userID int64, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := append(h.byUser[userID], msg)
	if overflow := len(turns) - h.limit; overflow > 0 {
		turns = append([]Message(nil), turns[overflow:]...)
	}
	h.byUser[userID] = turns
}

// Messages returns a copy of the retained turns for a user, oldest first.
func (h *History) Messages(userID int64) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := h.byUser[userID]
	out := make([]Message, len(turns))
	copy(out, turns)
	return out
}

// Clear drops all retained turns for a user. Called on logout.
func (h *History) Clear(userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byUser, userID)
}
