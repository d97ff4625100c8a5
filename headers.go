package securebridge

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	HeaderCSRFToken     = "X-CSRF-Token"
	HeaderRequestedWith = "X-Requested-With"
	HeaderRequestID     = "X-Request-ID"
)

// securityHeaders are attached to every outbound request and win over any
// caller-supplied header of the same name.
var securityHeaders = map[string]string{
	"Content-Type":              "application/json",
	HeaderRequestedWith:         "XMLHttpRequest",
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Content-Security-Policy":   "default-src 'self'",
}

// buildHeaders merges caller headers with the fixed set. Keys are
// canonicalized so a caller cannot shadow a fixed header by case.
func buildHeaders(caller map[string]string, csrfToken string) map[string]string {
	out := make(map[string]string, len(caller)+len(securityHeaders)+3)
	for k, v := range caller {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range securityHeaders {
		out[http.CanonicalHeaderKey(k)] = v
	}
	out[http.CanonicalHeaderKey(HeaderCSRFToken)] = csrfToken
	// Authorization is only ever set by the auth gate
	delete(out, "Authorization")
	if out[http.CanonicalHeaderKey(HeaderRequestID)] == "" {
		out[http.CanonicalHeaderKey(HeaderRequestID)] = uuid.NewString()
	}
	return out
}
