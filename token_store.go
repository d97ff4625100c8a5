// token_store.go
// --------------
// Session token handling: decoding the access token's claims and the default
// in-memory TokenStore. The access token is a JWT issued by the backend; the
// client never verifies its signature (it holds no key), it only reads the
// claims to decide whether the token is still worth sending.
package securebridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"github.com/opengovern/secure-bridge/internal"
)

// Fixed storage keys for the two session tokens.
const (
	AuthTokenKey    = "auth_token"
	RefreshTokenKey = "refresh_token"
)

// AuthClaims are the claims the dashboard backend puts in its access tokens.
type AuthClaims struct {
	Role     string `json:"role,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthToken is a raw access token together with its decoded claims.
type AuthToken struct {
	Raw    string
	Claims AuthClaims
}

var errNoExpiry = errors.New("token has no exp claim")

// DecodeToken reads the claims of a JWT without verifying its signature.
func DecodeToken(raw string) (*AuthToken, error) {
	claims := AuthClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("decode access token: %w", err)
	}
	return &AuthToken{Raw: raw, Claims: claims}, nil
}

// ExpiresAt returns the exp claim, or the zero time when absent.
func (t *AuthToken) ExpiresAt() time.Time {
	if t.Claims.ExpiresAt == nil {
		return time.Time{}
	}
	return t.Claims.ExpiresAt.Time
}

// Subject returns the sub claim.
func (t *AuthToken) Subject() string {
	return t.Claims.Subject
}

// Valid reports whether the token has an exp claim strictly after now.
func (t *AuthToken) Valid(now time.Time) error {
	if t.Claims.ExpiresAt == nil {
		return errNoExpiry
	}
	if internal.IsExpired(t.Claims.ExpiresAt.Unix(), now) {
		return fmt.Errorf("token expired at %s", t.Claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	return nil
}

// MemoryTokenStore keeps the session tokens in process memory under the
// fixed keys.
type MemoryTokenStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: make(map[string]string)}
}

func (s *MemoryTokenStore) Load(_ context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	access, ok := s.values[AuthTokenKey]
	if !ok || access == "" {
		return nil, nil
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: s.values[RefreshTokenKey],
	}, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("cannot store an empty access token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[AuthTokenKey] = token.AccessToken
	if token.RefreshToken != "" {
		s.values[RefreshTokenKey] = token.RefreshToken
	} else {
		delete(s.values, RefreshTokenKey)
	}
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, AuthTokenKey)
	delete(s.values, RefreshTokenKey)
	return nil
}
