package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side half of a login. Redis owns expiry via key
// TTL, so no sweep job is needed.
type Session struct {
	ID               string
	UID              string
	RefreshTokenHash []byte
	ExpiresAt        time.Time
}

// Sessions is what consumers of the session layer depend on; the Redis
// SessionStore is the production implementation.
type Sessions interface {
	Save(ctx context.Context, session Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionStore keeps sessions in Redis, one hash per session.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(id string) string { return "session:" + id }

func (s *SessionStore) Save(ctx context.Context, session Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	key := sessionKey(session.ID)
	fields := map[string]any{
		"uid":          session.UID,
		"refresh_hash": base64.StdEncoding.EncodeToString(session.RefreshTokenHash),
		"expires_at":   session.ExpiresAt.Unix(),
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (Session, error) {
	values, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if len(values) == 0 {
		return Session{}, ErrSessionNotFound
	}

	hash, err := base64.StdEncoding.DecodeString(values["refresh_hash"])
	if err != nil {
		return Session{}, fmt.Errorf("decode refresh hash: %w", err)
	}

	var expires time.Time
	var expiresUnix int64
	if _, err := fmt.Sscanf(values["expires_at"], "%d", &expiresUnix); err == nil {
		expires = time.Unix(expiresUnix, 0)
	}

	return Session{
		ID:               id,
		UID:              values["uid"],
		RefreshTokenHash: hash,
		ExpiresAt:        expires,
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
