package securebridge

import (
	"context"
	"strings"
)

const (
	LoginEndpoint  = "/auth/login"
	LogoutEndpoint = "/auth/logout"
)

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginResult is the login endpoint's response body.
type LoginResult struct {
	Token        string       `json:"token" validate:"required"`
	RefreshToken string       `json:"refreshToken"`
	User         *SessionUser `json:"user,omitempty"`
}

type SessionUser struct {
	ID       string `json:"id" validate:"required"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
}

// Login exchanges credentials for a session. Attempts are limited per email
// by the input limiter, and the issued token is stored only if it decodes and
// is not already expired.
func (b *SecureBridge) Login(ctx context.Context, creds Credentials) (*AuthToken, error) {
	if err := ValidatePayload(creds); err != nil {
		return nil, err
	}

	key := "login:" + strings.ToLower(strings.TrimSpace(creds.Email))
	decision, err := b.cc.InputLimiter.Allow(ctx, key)
	if err != nil {
		b.logger().Error(err, "input limiter unavailable, allowing login")
	} else if !decision.Allowed {
		e := newError(KindRateLimited, "Too many login attempts. Please wait before trying again.", nil)
		e.RetryAfter = decision.RetryAfter
		return nil, e
	}

	resp, err := b.Post(ctx, LoginEndpoint, creds, WithoutAuth())
	if err != nil {
		return nil, err
	}
	result, err := DecodeResponse[LoginResult](resp)
	if err != nil {
		return nil, err
	}

	token, err := DecodeToken(result.Token)
	if err == nil {
		err = token.Valid(b.cc.Now())
	}
	if err != nil {
		return nil, newValidationError("server issued an unusable session token", nil, err)
	}

	if err := b.cc.Tokens.Save(ctx, tokenFor(token, result.RefreshToken)); err != nil {
		return nil, newError(KindNetworkError, "Unable to persist the session", err)
	}
	b.logger().V(1).Info("logged in", "subject", token.Subject(), "expiresAt", token.ExpiresAt())
	return token, nil
}

// Logout tells the backend to end the session, then clears the stored
// tokens whatever the backend answered.
func (b *SecureBridge) Logout(ctx context.Context) error {
	if _, err := b.Post(ctx, LogoutEndpoint, nil); err != nil {
		b.logger().V(1).Info("logout call failed, clearing session anyway", "kind", string(KindOf(err)))
	}
	if err := b.cc.Tokens.Clear(ctx); err != nil {
		return newError(KindNetworkError, "Unable to clear the session", err)
	}
	return nil
}

// CurrentUser returns the claims of the stored session without a network
// call. A missing or expired token is cleared and reported as Unauthorized.
func (b *SecureBridge) CurrentUser(ctx context.Context) (*AuthToken, error) {
	return b.executor.authorize(ctx)
}
