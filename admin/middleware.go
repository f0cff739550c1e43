package admin

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/maxpert/marmot-pdm/cfg"
)

// secretExtractors enumerates the admin surface's two accepted credential
// forms, tried in order: a direct preshared-secret header, then a bearer
// token. Unlike a multi-tenant bearer scheme, PDM has exactly one secret and
// one principal (the operator), so there is no token to look up against a
// store -- both forms just surface the same configured string for comparison.
var secretExtractors = []func(*http.Request) (string, bool){
	func(r *http.Request) (string, bool) {
		v := r.Header.Get("X-PDM-Secret")
		return v, v != ""
	},
	func(r *http.Request) (string, bool) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	},
}

func extractAdminSecret(r *http.Request) (string, bool) {
	for _, extract := range secretExtractors {
		if v, ok := extract(r); ok {
			return v, true
		}
	}
	return "", false
}

// secretsMatch compares in constant time: the admin secret guards every
// vbucket's tracked-write contents, so a timing side channel on the
// comparison is worth closing even for a single-operator deployment.
func secretsMatch(provided, configured string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}

// AuthMiddleware validates shared-secret authentication for admin
// endpoints, matching the teacher's PSK-header-or-bearer-token check.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.IsAdminAuthEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		provided, ok := extractAdminSecret(r)
		if !ok {
			writeErrorResponse(w, http.StatusUnauthorized, "missing or malformed authentication header")
			return
		}

		if !secretsMatch(provided, cfg.GetAdminSecret()) {
			writeErrorResponse(w, http.StatusUnauthorized, "invalid secret")
			return
		}

		next.ServeHTTP(w, r)
	})
}
