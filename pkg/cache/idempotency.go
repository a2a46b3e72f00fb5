package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInProgress means another request with the same key has not finished
var ErrInProgress = errors.New("cache: request with this idempotency key is in progress")

const pendingMarker = "pending"

// StoredResponse is a replayable HTTP response
type StoredResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyStore remembers responses keyed by the client's Idempotency-Key
type IdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewIdempotencyStore creates a store. A nil client yields nil, which every
// method treats as disabled.
func NewIdempotencyStore(client *redis.Client, prefix string, ttl time.Duration) *IdempotencyStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *IdempotencyStore) key(scope, key string) string {
	return s.prefix + ":" + scope + ":" + key
}

func (s *IdempotencyStore) lockKey(scope, key string) string {
	return s.key(scope, key) + ":lock"
}

// Begin returns a stored response when the key was already completed.
// Otherwise it claims the key; ErrInProgress means someone else holds it.
func (s *IdempotencyStore) Begin(ctx context.Context, scope, key string) (*StoredResponse, error) {
	if s == nil {
		return nil, nil
	}

	var stored StoredResponse
	err := GetJSON(ctx, s.client, s.key(scope, key), &stored)
	switch {
	case err == nil:
		return &stored, nil
	case !errors.Is(err, ErrMiss):
		return nil, err
	}

	claimed, err := SetNX(ctx, s.client, s.lockKey(scope, key), pendingMarker, time.Minute)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrInProgress
	}
	return nil, nil
}

// Complete stores the response and releases the claim
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key string, resp StoredResponse) error {
	if s == nil {
		return nil
	}
	if err := SetJSON(ctx, s.client, s.key(scope, key), resp, s.ttl); err != nil {
		return err
	}
	return Delete(ctx, s.client, s.lockKey(scope, key))
}

// Abandon releases the claim without storing anything so the client may retry
func (s *IdempotencyStore) Abandon(ctx context.Context, scope, key string) error {
	if s == nil {
		return nil
	}
	return Delete(ctx, s.client, s.lockKey(scope, key))
}
