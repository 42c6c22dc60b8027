// Package session provides Redis-backed storage for refresh tokens.
// The service falls back to the Postgres refresh_sessions table when
// Redis is not configured.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("refresh session not found or expired")

// Token is what gets stored per refresh token hash. Only the hash ever
// appears in the key; the raw token stays with the client.
type Token struct {
	UserID    string    `json:"user_id"`
	JTI       string    `json:"jti"`
	CreatedAt time.Time `json:"created_at"`
}

type RedisStore struct {
	client     *redis.Client
	prefix     string
	userPrefix string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "refresh:", userPrefix: "refresh_user:"}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

func (s *RedisStore) userKey(userID string) string {
	return s.userPrefix + userID
}

func (s *RedisStore) Save(ctx context.Context, tokenHash string, token Token, expiresAt time.Time) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	encoded, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal refresh session: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh session already expired")
	}

	if err := s.client.Set(ctx, s.key(tokenHash), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}

	// Index the hash under the user so RevokeUser can find every live
	// session. All tokens share one TTL, so the newest save always
	// extends the index at least as far as its longest-lived member.
	userKey := s.userKey(token.UserID)
	if err := s.client.SAdd(ctx, userKey, tokenHash).Err(); err != nil {
		return fmt.Errorf("index refresh session: %w", err)
	}
	if err := s.client.Expire(ctx, userKey, ttl).Err(); err != nil {
		return fmt.Errorf("expire refresh index: %w", err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, tokenHash string) (Token, error) {
	encoded, err := s.client.Get(ctx, s.key(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return Token{}, ErrNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("lookup refresh session: %w", err)
	}

	var token Token
	if err := json.Unmarshal([]byte(encoded), &token); err != nil {
		return Token{}, fmt.Errorf("unmarshal refresh session: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Revoke(ctx context.Context, tokenHash string) error {
	if token, err := s.Lookup(ctx, tokenHash); err == nil {
		_ = s.client.SRem(ctx, s.userKey(token.UserID), tokenHash).Err()
	}
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// RevokeUser deletes every refresh session indexed for the user, so a
// password change or deactivation kills all devices at once.
func (s *RedisStore) RevokeUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)
	hashes, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list refresh sessions: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, s.key(hash))
	}
	keys = append(keys, userKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke refresh sessions: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
