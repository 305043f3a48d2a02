package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/petri/pkg/domain"
)

// Store implements ports.SubjectStore using Redis.
// Each subject is a JSON value under its own key, and a ZSET per experiment
// indexes the population ordered by join time.
type Store struct {
	client     *backend.Client
	prefix     string
	experiment string
	ttl        time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for subject keys.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, experiment string, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, experiment, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, experiment string, opts ...Option) *Store {
	store := &Store{
		client:     client,
		prefix:     "petri:",
		experiment: experiment,
		ttl:        0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(id string) string {
	return s.prefix + s.experiment + ":subject:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + s.experiment + ":index"
}

// Fetch returns the experiment population ordered by join time.
func (s *Store) Fetch(ctx context.Context) ([]domain.Subject, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read subject index: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Subject{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read subjects: %w", err)
	}

	subjects := make([]domain.Subject, 0, len(vals))
	var stale []any
	for i, val := range vals {
		raw, ok := val.(string)
		if !ok {
			// Key expired but the index entry survived. Prune it lazily.
			stale = append(stale, ids[i])
			continue
		}
		var subject domain.Subject
		if err := json.Unmarshal([]byte(raw), &subject); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subject %s: %w", ids[i], err)
		}
		subjects = append(subjects, subject)
	}

	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune stale index entries: %w", err)
		}
	}

	return subjects, nil
}

// Write upserts the batch. TxPipeline wraps it in MULTI/EXEC so the whole
// batch lands at once.
func (s *Store) Write(ctx context.Context, subjects []domain.Subject) error {
	if len(subjects) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for i := range subjects {
		data, err := json.Marshal(&subjects[i])
		if err != nil {
			return fmt.Errorf("failed to marshal subject %s: %w", subjects[i].ID, err)
		}
		pipe.Set(ctx, s.key(subjects[i].ID), data, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{
			Score:  float64(subjects[i].Joined.Unix()),
			Member: subjects[i].ID,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write batch to redis: %w", err)
	}
	return nil
}

// Get retrieves a single subject.
func (s *Store) Get(ctx context.Context, id string) (*domain.Subject, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var subject domain.Subject
	if err := json.Unmarshal([]byte(val), &subject); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subject: %w", err)
	}

	return &subject, nil
}

// Delete removes the subject and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
