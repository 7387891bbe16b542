// Package device attaches a readable device descriptor to the request context.
// Security alerts quote it so that staff can tell which terminal raised them.
package device

import (
	"net/http"

	"aurum/pkg/requestcontext"
)

// Parser turns a raw User-Agent into a descriptor such as "Chrome on Windows".
type Parser interface {
	ParseUserAgent(userAgent string) string
}

// Middleware derives the descriptor from the User-Agent stored by the
// metadata middleware, falling back to the raw header.
func Middleware(parser Parser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := requestcontext.UserAgent(r.Context())
			if ua == "" {
				ua = r.Header.Get("User-Agent")
			}
			descriptor := ""
			if parser != nil {
				descriptor = parser.ParseUserAgent(ua)
			}
			if descriptor == "" {
				descriptor = ua
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithDevice(r.Context(), descriptor)))
		})
	}
}
