package securebridge

import (
	"context"

	"golang.org/x/oauth2"
)

// Transport performs the network round trip. Implementations must honor ctx
// cancellation and return an error only when no response was received.
type Transport interface {
	ExecuteRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*NormalizedResponse, error)
}

// TokenStore is the persistent slot holding the session's access and refresh
// tokens. Load returns (nil, nil) when no token is stored.
type TokenStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
	Clear(ctx context.Context) error
}

// Limiter decides whether a call identified by key may proceed. An error
// from Allow is logged and the call goes through; only a refusing decision
// blocks it.
type Limiter interface {
	Allow(ctx context.Context, key string) (RateLimitDecision, error)
}

// Navigator receives the forced re-authentication side effect.
type Navigator interface {
	RedirectToLogin(ctx context.Context, reason string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, reason string)

func (f NavigatorFunc) RedirectToLogin(ctx context.Context, reason string) { f(ctx, reason) }

type nopNavigator struct{}

func (nopNavigator) RedirectToLogin(context.Context, string) {}
