package testutil

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFKey is the 32-byte key used by ProtectCSRF.
const CSRFKey = "test-csrf-key-0123456789abcdef!!"

// ProtectCSRF wraps h with real gorilla/csrf protection configured for
// plain-HTTP test requests, so handlers can call csrf.Token(r) and tests
// can exercise token round trips.
func ProtectCSRF(h http.Handler) http.Handler {
	protect := csrf.Protect([]byte(CSRFKey), csrf.Secure(false), csrf.Path("/"))(h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protect.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
