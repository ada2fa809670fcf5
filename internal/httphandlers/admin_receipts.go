package httphandlers

import (
	"net/http"

	"github.com/x402gateway/gateway/internal/receipt"
)

// ReceiptsHandler serves the /admin/receipts resource, delegating
// straight to the receipt store's query/stats methods (spec.md §4.7
// treats both as derived views, not a separately maintained index).
type ReceiptsHandler struct {
	Store *receipt.Store
}

// NewReceiptsHandler builds a receipts admin handler.
func NewReceiptsHandler(store *receipt.Store) *ReceiptsHandler {
	return &ReceiptsHandler{Store: store}
}

// List returns receipts newest-first, optionally filtered.
// GET /admin/receipts?tool_id=&outcome=
func (h *ReceiptsHandler) List(w http.ResponseWriter, r *http.Request) {
	toolID := r.URL.Query().Get("tool_id")
	outcome := receipt.Outcome(r.URL.Query().Get("outcome"))
	results := h.Store.Query(toolID, outcome)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"receipts": results,
		"count":    len(results),
	})
}

// Stats returns aggregated counters, optionally scoped to one tool.
// GET /admin/receipts/stats?tool_id=
func (h *ReceiptsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	toolID := r.URL.Query().Get("tool_id")
	writeJSON(w, http.StatusOK, h.Store.Stats(toolID))
}
