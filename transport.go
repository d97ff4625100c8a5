package securebridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MaxResponseBytes caps how much of a response body the transport reads.
const MaxResponseBytes = 8 << 20

// HTTPTransport is the default Transport, a net/http client instrumented
// with OpenTelemetry spans.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps client's RoundTripper with otelhttp. A nil client
// uses a fresh http.Client; per-call deadlines come from the context.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	wrapped := *client
	base := wrapped.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = otelhttp.NewTransport(base)
	return &HTTPTransport{client: &wrapped}
}

func (t *HTTPTransport) ExecuteRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*NormalizedResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxResponseBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxResponseBytes)
	}

	return &NormalizedResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Data:       data,
	}, nil
}
