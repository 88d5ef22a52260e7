// Package redis provides Redis-backed implementations of the entity store and
// manifest provider ports.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "manifold:entity:"

// Store implements ports.EntityStore using Redis.
//
// Conditional writes use WATCH/MULTI: the entity key is watched while its
// current token is compared, and the transaction aborts if another client
// writes the key in between.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for entities.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for entities.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the entity to Redis and returns its new version token.
func (s *Store) Save(ctx context.Context, entity *domain.Entity, expectedVersion string) (string, error) {
	stored := entity.Clone()
	stored.Version = uuid.NewString()

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entity: %w", err)
	}

	key := s.key(entity.ID)
	txn := func(tx *backend.Tx) error {
		if expectedVersion != "" {
			current, err := s.load(ctx, tx, key)
			if errors.Is(err, domain.ErrEntityNotFound) {
				return domain.ErrVersionConflict
			}
			if err != nil {
				return err
			}
			if current.Version != expectedVersion {
				return domain.ErrVersionConflict
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)

			// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
			score := float64(time.Now().Add(s.ttl).Unix())
			if s.ttl == 0 {
				score = 4102444800 // 2100-01-01
			}
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: entity.ID})
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txn, key)
	switch {
	case err == nil:
		return stored.Version, nil
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, backend.TxFailedErr):
		return "", fmt.Errorf("entity %s: %w", entity.ID, domain.ErrVersionConflict)
	default:
		return "", fmt.Errorf("failed to save to redis: %w", err)
	}
}

// Load retrieves the entity from Redis.
func (s *Store) Load(ctx context.Context, id string) (*domain.Entity, error) {
	return s.load(ctx, s.client, s.key(id))
}

// getter is satisfied by both *backend.Client and *backend.Tx.
type getter interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, key string) (*domain.Entity, error) {
	val, err := c.Get(ctx, key).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var entity domain.Entity
	if err := json.Unmarshal([]byte(val), &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	return &entity, nil
}

// Delete removes the entity.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns stored entity ids, pruning expired ones from the index.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	// ZREMRANGEBYSCORE key -inf (now)
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired entities: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
