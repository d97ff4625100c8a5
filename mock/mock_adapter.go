package mock

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	securebridge "github.com/opengovern/secure-bridge"
)

const MockDefaultRetryAfterSecs = 30

// Call is one request seen by a MockAdapter.
type Call struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// MockAdapter is a scripted securebridge.Transport.
type MockAdapter struct {
	RequestsUntilRateLimit int  // How many requests until we hit a limit
	ShouldReturn429Always  bool // If true, always return 429
	RetryAfterSecs         int

	StatusCode int    // defaults to 200
	Body       []byte // defaults to {"success":true}
	Err        error  // returned instead of a response
	Hang       bool   // block until the context is done

	mu    sync.Mutex
	calls []Call
}

func (m *MockAdapter) ExecuteRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*securebridge.NormalizedResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Method: method, URL: url, Headers: headers, Body: body})
	count := len(m.calls)
	m.mu.Unlock()

	if m.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.Err != nil {
		return nil, m.Err
	}

	if m.ShouldReturn429Always || (m.RequestsUntilRateLimit > 0 && count > m.RequestsUntilRateLimit) {
		retry := m.RetryAfterSecs
		if retry == 0 {
			retry = MockDefaultRetryAfterSecs
		}
		h := http.Header{}
		h.Set("Retry-After", strconv.Itoa(retry))
		return &securebridge.NormalizedResponse{
			StatusCode: http.StatusTooManyRequests,
			Headers:    h,
			Data:       []byte(`{"error":"Rate limited"}`),
		}, nil
	}

	status := m.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	data := m.Body
	if data == nil {
		data = []byte(`{"success":true}`)
	}
	return &securebridge.NormalizedResponse{
		StatusCode: status,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Data:       data,
	}, nil
}

// Calls returns a copy of the requests seen so far.
func (m *MockAdapter) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MockAdapter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
