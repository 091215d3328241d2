package mosaic

import (
	"net/http"
	"strings"
)

// Pages only show avatars served from /uploads and post the regenerate form back to
// us, so everything else is shut off.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'none'",
	"img-src 'self'",
	"form-action 'self'",
	"base-uri 'none'",
	"frame-ancestors 'none'",
}, "; ")

var safeHeaders = map[string]string{
	"Content-Security-Policy":      contentSecurityPolicy,
	"Cross-Origin-Resource-Policy": "same-origin",
	"Permissions-Policy":           "camera=(), microphone=(), geolocation=()",
	"Referrer-Policy":              "strict-origin-when-cross-origin",
	"X-Content-Type-Options":       "nosniff",
	"X-Frame-Options":              "DENY",
}

func SafeHeaderMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		for name, value := range safeHeaders {
			header.Set(name, value)
		}
		h.ServeHTTP(w, r)
	})
}
