// Package snapshot keeps the latest classified visitor batch. A Refresher
// pulls from the configured source on an interval and writes the result to
// a Store that every API replica reads from.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/visitor"
)

// ErrNoSnapshot is returned by Latest before the first refresh completes.
var ErrNoSnapshot = errors.New("snapshot: no snapshot yet")

// Batch is one refresh result.
type Batch struct {
	Source      string           `json:"source"`
	Records     []visitor.Record `json:"records"`
	Issues      []datanorm.Issue `json:"issues"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

// Store holds the latest batch.
type Store interface {
	Save(ctx context.Context, b *Batch) error
	Latest(ctx context.Context) (*Batch, error)
}

// RedisStore keeps the batch as a single JSON value.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore stores under "snapshot:<name>".
func NewRedisStore(rdb *redis.Client, name string) *RedisStore {
	if name == "" {
		name = "latest"
	}
	return &RedisStore{rdb: rdb, key: "snapshot:" + name}
}

func (s *RedisStore) Save(ctx context.Context, b *Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("snapshot: encode batch: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("snapshot: save %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Latest(ctx context.Context) (*Batch, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", s.key, err)
	}
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", s.key, err)
	}
	return &b, nil
}

// MemoryStore is a process-local Store for single-replica runs.
type MemoryStore struct {
	mu     sync.RWMutex
	latest *Batch
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Save(_ context.Context, b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.latest = &cp
	return nil
}

func (s *MemoryStore) Latest(_ context.Context) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoSnapshot
	}
	cp := *s.latest
	return &cp, nil
}
