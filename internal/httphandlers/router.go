package httphandlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/x402gateway/gateway/internal/admission"
)

// Deps bundles every collaborator the admin API delegates to.
type Deps struct {
	Routes    *RoutesHandler
	Receipts  *ReceiptsHandler
	Blocklist *BlocklistHandler
	Spend     *SpendHandler
	AdminKey  *admission.APIKeyChecker
}

// Router builds the /admin/* route group, gated by a bearer/X-Api-Key
// check against ADMIN_KEY (spec.md §4.11), reusing the same
// constant-time comparison the per-request API-key admission check
// uses (internal/admission.APIKeyChecker).
func Router(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(adminAuth(d.AdminKey))

	r.Get("/routes", d.Routes.List)
	r.Put("/routes", d.Routes.Replace)
	r.Delete("/routes/{tool_id}", d.Routes.Delete)

	r.Get("/receipts", d.Receipts.List)
	r.Get("/receipts/stats", d.Receipts.Stats)

	r.Get("/blocklist", d.Blocklist.List)
	r.Put("/blocklist", d.Blocklist.Replace)

	r.Get("/spend/{mandate_id}", d.Spend.Get)

	return r
}

func adminAuth(checker *admission.APIKeyChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker == nil || checker.Allow(r) {
				next.ServeHTTP(w, r)
				return
			}
			adminError(w, http.StatusUnauthorized, "missing or invalid admin key")
		})
	}
}
