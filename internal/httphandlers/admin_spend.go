package httphandlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/x402gateway/gateway/internal/spend"
)

// SpendHandler serves /admin/spend/{mandate_id}: the current UTC day's
// running total plus the all-time lifetime total for one mandate.
type SpendHandler struct {
	Tracker *spend.Tracker
}

// NewSpendHandler builds a spend admin handler.
func NewSpendHandler(tracker *spend.Tracker) *SpendHandler {
	return &SpendHandler{Tracker: tracker}
}

// Get returns a mandate's daily and lifetime spend counters.
// GET /admin/spend/{mandate_id}
func (h *SpendHandler) Get(w http.ResponseWriter, r *http.Request) {
	mandateID := chi.URLParam(r, "mandate_id")
	if mandateID == "" {
		adminError(w, http.StatusBadRequest, "mandate_id is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mandate_id": mandateID,
		"daily":      h.Tracker.GetSpent(mandateID),
		"lifetime":   h.Tracker.Lifetime(mandateID),
	})
}
