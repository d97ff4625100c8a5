package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/oauth2"

	securebridge "github.com/opengovern/secure-bridge"
)

// RedisTokenStore keeps the session tokens under <prefix>auth_token and
// <prefix>refresh_token. When the token carries an expiry both keys expire
// with it.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

func NewRedisTokenStore(client *redis.Client, prefix string) *RedisTokenStore {
	return &RedisTokenStore{client: client, prefix: prefix}
}

func (s *RedisTokenStore) authKey() string    { return s.prefix + securebridge.AuthTokenKey }
func (s *RedisTokenStore) refreshKey() string { return s.prefix + securebridge.RefreshTokenKey }

func (s *RedisTokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	values, err := s.client.MGet(ctx, s.authKey(), s.refreshKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	access, _ := values[0].(string)
	if access == "" {
		return nil, nil
	}
	refresh, _ := values[1].(string)

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer", RefreshToken: refresh}
	if ttl, err := s.client.PTTL(ctx, s.authKey()).Result(); err == nil && ttl > 0 {
		tok.Expiry = time.Now().Add(ttl)
	}
	return tok, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("cannot store an empty access token")
	}
	var ttl time.Duration
	if !token.Expiry.IsZero() {
		ttl = time.Until(token.Expiry)
		if ttl <= 0 {
			return errors.New("cannot store an expired access token")
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.authKey(), token.AccessToken, ttl)
		if token.RefreshToken != "" {
			pipe.Set(ctx, s.refreshKey(), token.RefreshToken, ttl)
		} else {
			pipe.Del(ctx, s.refreshKey())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.authKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
