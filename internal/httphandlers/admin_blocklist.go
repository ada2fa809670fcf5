package httphandlers

import (
	"encoding/json"
	"net/http"

	"github.com/x402gateway/gateway/internal/admission"
	"github.com/x402gateway/gateway/internal/config"
)

// BlocklistHandler serves /admin/blocklist: the in-memory list gates
// every request (admission.Blocklist.IsBlocked), while ConfigDoc is
// the durable record an operator's PUT is replayed from on restart.
type BlocklistHandler struct {
	Blocklist     *admission.Blocklist
	ConfigDocFile string
	Defaults      config.Doc
}

// NewBlocklistHandler builds a blocklist admin handler.
func NewBlocklistHandler(blocklist *admission.Blocklist, configDocFile string, defaults config.Doc) *BlocklistHandler {
	return &BlocklistHandler{Blocklist: blocklist, ConfigDocFile: configDocFile, Defaults: defaults}
}

// List returns the current blocked agent addresses.
// GET /admin/blocklist
func (h *BlocklistHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"agent_blocklist": h.Blocklist.List()})
}

// Replace swaps the entire blocklist and persists it into ConfigDoc.
// PUT /admin/blocklist
func (h *BlocklistHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentBlocklist []string `json:"agent_blocklist"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		adminError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.Blocklist.Replace(body.AgentBlocklist)

	doc, err := config.LoadDoc(h.ConfigDocFile, h.Defaults)
	if err != nil {
		adminError(w, http.StatusInternalServerError, "failed to load config doc: "+err.Error())
		return
	}
	doc.AgentBlocklist = body.AgentBlocklist
	if err := config.SaveDoc(h.ConfigDocFile, doc); err != nil {
		adminError(w, http.StatusInternalServerError, "failed to persist config doc: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"agent_blocklist": h.Blocklist.List()})
}
