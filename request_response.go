package securebridge

import (
	"net/http"
	"time"

	"github.com/opengovern/secure-bridge/jsonvalue"
)

// Request is a single outbound API call. It is built fresh per call.
type Request struct {
	Method   string
	Endpoint string // path relative to Config.BaseURL, e.g. "/patients?page=2"
	Headers  map[string]string
	Body     jsonvalue.Value // nil when the call carries no body
	Timeout  time.Duration   // 0 uses Config.Timeout

	RequireAuth bool

	// RateLimitKey overrides the derived limiter key.
	RateLimitKey string
}

// RequestOption adjusts a Request built by the verb helpers.
type RequestOption func(*Request)

// WithHeader adds a caller header. The fixed security headers cannot be overridden.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithTimeout bounds this call instead of Config.Timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *Request) { r.Timeout = d }
}

// WithoutAuth skips the auth gate, for login and other public endpoints.
func WithoutAuth() RequestOption {
	return func(r *Request) { r.RequireAuth = false }
}

// WithRateLimitKey pins the limiter key for this call.
func WithRateLimitKey(key string) RequestOption {
	return func(r *Request) { r.RateLimitKey = key }
}

// NormalizedResponse is what a Transport hands back to the pipeline.
type NormalizedResponse struct {
	StatusCode int
	Headers    http.Header
	Data       []byte
}

// APIResponse is the result of a successful round trip. Data has been sanitized.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    jsonvalue.Value `json:"data"`
	Message string          `json:"message"`
}

const successMessage = "Request successful"

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
