package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/x402gateway/gateway/internal/routes"
)

// docsHandler serves GET /docs: an OpenAPI 3.0.3 document generated
// from the live route table (spec.md §6.1), rather than the teacher's
// hand-authored openapi.json — the gateway's paths change at runtime
// via the admin API, so the document is derived, not static.
func docsHandler(table *routes.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := buildOpenAPISpec(table.Snapshot())
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

func buildOpenAPISpec(rules []routes.Rule) map[string]interface{} {
	paths := map[string]interface{}{}
	for _, rule := range rules {
		operation := map[string]interface{}{
			"summary":     rule.Description,
			"operationId": rule.ToolID,
			"tags":        []string{rule.Group},
			"x-tool-id":   rule.ToolID,
			"x-price-usdc": rule.Price,
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "upstream response, forwarded verbatim",
				},
				"402": map[string]interface{}{
					"description": "payment required — resubmit with a filled X-Payment header",
					"content": map[string]interface{}{
						"application/json": map[string]interface{}{
							"schema": map[string]interface{}{"$ref": "#/components/schemas/PaymentRequiredBody"},
						},
					},
				},
			},
		}

		entry, ok := paths[rule.Path].(map[string]interface{})
		if !ok {
			entry = map[string]interface{}{}
		}
		entry[strings.ToLower(rule.Method)] = operation
		paths[rule.Path] = entry
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   "x402 Gateway",
			"version": "1.0.0",
			"description": "Pay-per-request HTTP API gateway: every /api/* route requires " +
				"an x402 USDC payment, optionally constrained by an AP2 spending mandate.",
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"PaymentRequiredBody": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"accepts": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"scheme":  map[string]string{"type": "string"},
									"price":   map[string]string{"type": "string"},
									"network": map[string]string{"type": "string"},
									"payTo":   map[string]string{"type": "string"},
								},
							},
						},
						"description": map[string]string{"type": "string"},
						"mimeType":    map[string]string{"type": "string"},
					},
				},
			},
		},
	}
}

