package securebridge

import (
	"time"

	"github.com/google/uuid"
)

// ClientContext holds the state shared by every call made through one
// SecureBridge: the session token slot, the limiters, the CSRF token and the
// redirect hook. Pass a custom one to NewSecureBridge to substitute fakes.
type ClientContext struct {
	Tokens       TokenStore
	Limiter      Limiter
	InputLimiter Limiter
	Navigator    Navigator
	CSRFToken    string
	Now          func() time.Time
}

// NewClientContext returns a context backed by in-memory stores and the
// limits from cfg.
func NewClientContext(cfg *Config) *ClientContext {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ClientContext{
		Tokens:       NewMemoryTokenStore(),
		Limiter:      NewRateLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window),
		InputLimiter: NewRateLimiter(cfg.RateLimit.InputMaxAttempts, cfg.RateLimit.Window),
		Navigator:    nopNavigator{},
		CSRFToken:    NewCSRFToken(),
		Now:          time.Now,
	}
}

// NewCSRFToken returns a fresh random token for the X-CSRF-Token header.
func NewCSRFToken() string {
	return uuid.NewString()
}

func (cc *ClientContext) withDefaults(cfg *Config) *ClientContext {
	def := NewClientContext(cfg)
	if cc == nil {
		return def
	}
	out := *cc
	if out.Tokens == nil {
		out.Tokens = def.Tokens
	}
	if out.Limiter == nil {
		out.Limiter = def.Limiter
	}
	if out.InputLimiter == nil {
		out.InputLimiter = def.InputLimiter
	}
	if out.Navigator == nil {
		out.Navigator = def.Navigator
	}
	if out.CSRFToken == "" {
		out.CSRFToken = def.CSRFToken
	}
	if out.Now == nil {
		out.Now = def.Now
	}
	return &out
}
