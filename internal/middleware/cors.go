package middleware

import (
	"net/http"
	"strings"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsMaxAge  = "600"
)

var corsHeaders = strings.Join([]string{"Content-Type", "Authorization", HeaderCorrelationID}, ", ")

// CORS lets the browser shell call the terminal API. An empty list or a single
// "*" allows any origin; the request origin is echoed back either way.
func CORS(allowOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[strings.ToLower(strings.TrimSpace(o))] = struct{}{}
	}
	_, wildcard := allowed["*"]
	anyOrigin := len(allowed) == 0 || wildcard

	permit := func(origin string) bool {
		if origin == "" {
			return false
		}
		if anyOrigin {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if permit(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Expose-Headers", HeaderCorrelationID)
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}

			// preflight never reaches the router
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
