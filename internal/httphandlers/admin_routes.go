// Package httphandlers implements the gateway's bearer-authenticated
// admin surface: route table CRUD, receipt queries, blocklist
// management, and per-mandate spend inspection. Grounded on
// internal/httpserver's handlers_*.go family (one file per resource, a
// thin handler delegating to a service/collaborator method, JSON in
// and out via a shared writeJSON helper).
package httphandlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/x402gateway/gateway/internal/admission"
	"github.com/x402gateway/gateway/internal/routes"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// adminError writes a plain {"error": "..."} body at an explicit
// status. Admin requests are operator-to-gateway calls, not pipeline
// admissions, so they don't carry a errors.ReasonCode — that enum is
// closed over the nine pipeline stages (spec.md §7) and has no member
// for "malformed admin request body".
func adminError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// RoutesHandler serves the /admin/routes resource: the operator's view
// onto the live route table, with every mutation re-running the same
// SSRF guard and x402-upstream probe a bootstrap-time load would skip
// (spec.md §4.9 only exempts already-trusted on-disk state, not a
// fresh admin write).
type RoutesHandler struct {
	Table         *routes.Table
	RoutesFile    string
	ProbeClient   *http.Client
	ProbeTimeout  time.Duration
}

// NewRoutesHandler builds a routes admin handler.
func NewRoutesHandler(table *routes.Table, routesFile string, probeClient *http.Client, probeTimeout time.Duration) *RoutesHandler {
	if probeClient == nil {
		probeClient = http.DefaultClient
	}
	return &RoutesHandler{Table: table, RoutesFile: routesFile, ProbeClient: probeClient, ProbeTimeout: probeTimeout}
}

// List returns every registered rule.
// GET /admin/routes
func (h *RoutesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, routes.Document{Routes: h.Table.Snapshot()})
}

// Replace atomically swaps the whole table, running the SSRF guard and
// x402-upstream probe per incoming rule (skippable per rule via
// skip_ssrf_check / skip_upstream_probe). On any rejected rule the
// table is left completely unchanged.
// PUT /admin/routes
func (h *RoutesHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var doc routes.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		adminError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	for _, rule := range doc.Routes {
		if err := admission.CheckSSRF(rule.Provider.BackendURL, rule.SkipSSRFCheck); err != nil {
			adminError(w, http.StatusBadRequest, "route "+rule.ToolID+" rejected by SSRF guard: "+err.Error())
			return
		}
		if !rule.SkipUpstreamProbe {
			probe := admission.ProbeX402Upstream(r.Context(), h.ProbeClient, rule.Provider.BackendURL, rule.Path, h.ProbeTimeout)
			if probe.Blocked {
				adminError(w, http.StatusBadRequest, "route "+rule.ToolID+" rejected: "+probe.Reason)
				return
			}
		}
	}

	if err := h.Table.Replace(doc.Routes); err != nil {
		adminError(w, http.StatusBadRequest, "route table rejected: "+err.Error())
		return
	}
	if err := routes.SaveFile(h.RoutesFile, routes.Document{Routes: h.Table.Snapshot()}); err != nil {
		adminError(w, http.StatusInternalServerError, "failed to persist routes file: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, routes.Document{Routes: h.Table.Snapshot()})
}

// Delete removes a single rule by tool_id.
// DELETE /admin/routes/{tool_id}
func (h *RoutesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	toolID := chi.URLParam(r, "tool_id")
	h.Table.Remove(toolID)
	if err := routes.SaveFile(h.RoutesFile, routes.Document{Routes: h.Table.Snapshot()}); err != nil {
		adminError(w, http.StatusInternalServerError, "failed to persist routes file: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
