package middleware

import (
	"net/http"
	"strings"
)

// baseHeaders apply to every response, including the documentation UI.
var baseHeaders = [][2]string{
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
}

// apiHeaders apply to everything outside the docs UI. Logger responses echo
// caller text and must not be cached or rendered as a document.
var apiHeaders = [][2]string{
	{"Cache-Control", "no-store"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()"},
}

// Security sets OWASP REST hardening headers. Requests under docsPrefixes
// get the base headers only; the API reference page loads its assets from a CDN.
func Security(docsPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range baseHeaders {
				h.Set(kv[0], kv[1])
			}
			if !isDocsPath(r.URL.Path, docsPrefixes) {
				for _, kv := range apiHeaders {
					h.Set(kv[0], kv[1])
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isDocsPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
