package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/richyrich98/dotanddot/pkg/errors"
)

// TokenStore is the slice of the redis client the session provider needs.
type TokenStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Service is a redis-backed session provider. The sign-in flow itself (the
// one-time-passcode dialog) lives outside this repository; this is only the
// session boundary it hands tokens to.
type Service struct {
	redis TokenStore
	ttl   time.Duration
}

type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}

func NewService(redisClient TokenStore, ttl time.Duration) *Service {
	return &Service{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Create issues a new session for a verified user and returns its bearer
// token. The user id is assigned here for first-time users; passing an
// existing id keeps the identity stable across sessions.
func (s *Service) Create(ctx context.Context, userID, displayName string) (*Session, error) {
	if userID == "" {
		userID = uuid.New().String()
	}

	session := &Session{
		Token: uuid.New().String(),
		Identity: Identity{
			ID:          userID,
			DisplayName: displayName,
		},
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(session.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal identity: %w", err)
	}

	if err := s.redis.Set(ctx, s.tokenKey(session.Token), data, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Resolve implements Provider.
func (s *Service) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}

	data, err := s.redis.Get(ctx, s.tokenKey(token))
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIdentityProvider, err)
	}

	var ident Identity
	if err := json.Unmarshal([]byte(data), &ident); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIdentityProvider, err)
	}

	return &ident, nil
}

// Delete ends a session. Deleting an unknown token is not an error.
func (s *Service) Delete(ctx context.Context, token string) error {
	return s.redis.Del(ctx, s.tokenKey(token))
}

func (s *Service) tokenKey(token string) string {
	return fmt.Sprintf("identity:token:%s", token)
}
