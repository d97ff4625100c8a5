// sdk.go
// ------
// The sdk.go file contains the SecureBridge struct, the entry point of the
// client for users.
//
// Key functionalities include:
// - Initializing the client with NewSecureBridge()
// - Making requests via Get/Post/Put/Patch/Delete or Execute()
// - Swapping the transport, logger and metrics through Options
//
// Every call goes through the RequestExecutor, which applies the rate limit,
// auth, sanitization and classification gates in a fixed order. A call either
// returns a sanitized *APIResponse or an *Error; nothing else escapes.
package securebridge

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/opengovern/secure-bridge/jsonvalue"
)

type SecureBridge struct {
	mu        sync.RWMutex
	config    *Config
	cc        *ClientContext
	transport Transport
	metrics   *Metrics
	log       logr.Logger
	executor  *RequestExecutor
}

// Option configures a SecureBridge at construction.
type Option func(*SecureBridge)

// WithTransport replaces the default net/http transport.
func WithTransport(t Transport) Option {
	return func(b *SecureBridge) { b.transport = t }
}

// WithLogger sets the logger. Pipeline decisions are logged at V(1).
func WithLogger(l logr.Logger) Option {
	return func(b *SecureBridge) { b.log = l }
}

// WithMetrics records every call in m.
func WithMetrics(m *Metrics) Option {
	return func(b *SecureBridge) { b.metrics = m }
}

// NewSecureBridge builds a client. A nil cfg uses DefaultConfig and a nil cc
// uses in-memory stores; nil fields of cc are filled the same way.
func NewSecureBridge(cfg *Config, cc *ClientContext, opts ...Option) *SecureBridge {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	b := &SecureBridge{
		config: cfg,
		cc:     cc.withDefaults(cfg),
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.transport == nil {
		b.transport = NewHTTPTransport(nil)
	}
	b.executor = NewRequestExecutor(b)
	return b
}

// SetLogger replaces the logger after construction.
func (b *SecureBridge) SetLogger(l logr.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = l
}

// Config returns the configuration the client was built with.
func (b *SecureBridge) Config() *Config {
	return b.config
}

// ClientContext returns the shared session state.
func (b *SecureBridge) ClientContext() *ClientContext {
	return b.cc
}

// Execute runs req through the pipeline. The returned error is always an *Error.
// req itself is not modified.
func (b *SecureBridge) Execute(ctx context.Context, req *Request) (resp *APIResponse, err error) {
	start := time.Now()
	normalized := Request{}
	if req != nil {
		normalized = *req
	}
	req = &normalized
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	defer func() { b.metrics.observe(req.Method, err, time.Since(start)) }()

	if strings.TrimSpace(req.Endpoint) == "" {
		return nil, newValidationError("endpoint is required", nil, nil)
	}

	return b.executor.Execute(ctx, req)
}

// Get fetches endpoint. Reads carry no body and are safe to repeat.
func (b *SecureBridge) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*APIResponse, error) {
	return b.Execute(ctx, newRequest(http.MethodGet, endpoint, nil, opts))
}

func (b *SecureBridge) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*APIResponse, error) {
	return b.Execute(ctx, newRequest(http.MethodDelete, endpoint, nil, opts))
}

// Post validates payload against its validate tags, then sends it. Nothing
// reaches the network when validation fails.
func (b *SecureBridge) Post(ctx context.Context, endpoint string, payload interface{}, opts ...RequestOption) (*APIResponse, error) {
	return b.send(ctx, http.MethodPost, endpoint, payload, opts)
}

func (b *SecureBridge) Put(ctx context.Context, endpoint string, payload interface{}, opts ...RequestOption) (*APIResponse, error) {
	return b.send(ctx, http.MethodPut, endpoint, payload, opts)
}

func (b *SecureBridge) Patch(ctx context.Context, endpoint string, payload interface{}, opts ...RequestOption) (*APIResponse, error) {
	return b.send(ctx, http.MethodPatch, endpoint, payload, opts)
}

func (b *SecureBridge) send(ctx context.Context, method, endpoint string, payload interface{}, opts []RequestOption) (*APIResponse, error) {
	if err := ValidatePayload(payload); err != nil {
		b.metrics.observe(method, err, 0)
		b.logger().V(1).Info("payload rejected before sending", "method", method, "endpoint", endpoint, "fields", len(errorFields(err)))
		return nil, err
	}

	var body jsonvalue.Value
	if payload != nil {
		v, err := jsonvalue.FromGo(payload)
		if err != nil {
			verr := newValidationError("payload is not representable as JSON", nil, err)
			b.metrics.observe(method, verr, 0)
			return nil, verr
		}
		body = v
	}
	return b.Execute(ctx, newRequest(method, endpoint, body, opts))
}

func newRequest(method, endpoint string, body jsonvalue.Value, opts []RequestOption) *Request {
	req := &Request{
		Method:      method,
		Endpoint:    endpoint,
		Body:        body,
		RequireAuth: true,
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

func errorFields(err error) []FieldError {
	if e, ok := AsError(err); ok {
		return e.Fields
	}
	return nil
}

func (b *SecureBridge) logger() logr.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.log
}
