package middleware

import "net/http"

// Vary appends the given request headers to the Vary response header. The
// logger endpoint negotiates JSON or CBOR on Accept and answers 401 or 200
// depending on Authorization. The CORS middleware adds Origin itself.
func Vary(headers ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range headers {
				w.Header().Add("Vary", h)
			}
			next.ServeHTTP(w, r)
		})
	}
}
