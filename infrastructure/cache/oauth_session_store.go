package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-ops/domain/repository"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("oauth session state not found or expired")

// OAuthSessionStore keeps the OAuth flow's short-lived cross-request state
// in redis: anti-forgery states bound to users, and pending multi-channel
// selections keyed by a random handle.
type OAuthSessionStore struct {
	client *redis.Client
}

func NewOAuthSessionStore(client *redis.Client) repository.IOAuthSession {
	return &OAuthSessionStore{client: client}
}

func stateKey(state string) string      { return "oauth:state:" + state }
func selectionKey(handle string) string { return "oauth:selection:" + handle }

func (s *OAuthSessionStore) SaveState(ctx context.Context, state, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, stateKey(state), userID, ttl).Err()
}

func (s *OAuthSessionStore) ConsumeState(ctx context.Context, state string) (string, error) {
	userID, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if err == redis.Nil {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume oauth state failed: %w", err)
	}
	return userID, nil
}

func (s *OAuthSessionStore) SaveSelection(ctx context.Context, handle string, sel *repository.PendingSelection, ttl time.Duration) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, selectionKey(handle), data, ttl).Err()
}

func (s *OAuthSessionStore) GetSelection(ctx context.Context, handle string) (*repository.PendingSelection, error) {
	data, err := s.client.Get(ctx, selectionKey(handle)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending selection failed: %w", err)
	}
	sel := &repository.PendingSelection{}
	if err := json.Unmarshal(data, sel); err != nil {
		return nil, err
	}
	return sel, nil
}

func (s *OAuthSessionStore) DeleteSelection(ctx context.Context, handle string) error {
	return s.client.Del(ctx, selectionKey(handle)).Err()
}
