// Package distlock provides the lock that keeps snapshot refreshes to one
// replica at a time: Redis SET NX when Redis is configured, a Postgres
// session advisory lock otherwise.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/visitor-insights/internal/pkg/logger"
)

// ErrNoBackend is returned by NewLock when neither Redis nor Postgres is configured.
var ErrNoBackend = errors.New("distlock: no lock backend configured")

// DistLock is a non-blocking, non-reentrant lock. One instance is owned by
// one goroutine at a time.
type DistLock interface {
	// Acquire reports whether the lock was taken.
	Acquire(ctx context.Context) (bool, error)
	// Release frees the lock if this instance still holds it.
	Release(ctx context.Context) error
}

// Renewable is a lock that expires on its own and can be extended while held.
type Renewable interface {
	TTL() time.Duration
	Extend(ctx context.Context, ttl time.Duration) error
}

// NewLock prefers Redis and falls back to a Postgres advisory lock.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) (DistLock, error) {
	switch {
	case redisClient != nil:
		return NewRedisLock(redisClient, key, ttl), nil
	case db != nil:
		return NewPGAdvisoryLock(db, key), nil
	default:
		return nil, ErrNoBackend
	}
}

// WithLock runs fn while holding l. It returns (false, nil) without calling
// fn when another holder has the lock. A Renewable lock is extended every
// third of its TTL until fn returns.
func WithLock(ctx context.Context, l DistLock, fn func(ctx context.Context) error) (bool, error) {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer func() {
		// release on a fresh context so a canceled refresh still frees the lock
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Release(relCtx)
	}()
	if r, ok := l.(Renewable); ok {
		stop := keepAlive(ctx, r)
		defer stop()
	}
	return true, fn(ctx)
}

// keepAlive extends r in the background. The returned func stops it and
// waits for the goroutine to exit.
func keepAlive(ctx context.Context, r Renewable) func() {
	interval := r.TTL() / 3
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := r.Extend(ctx, r.TTL())
				if err == nil || ctx.Err() != nil {
					continue
				}
				logger.Warn("distlock: extend failed", "error", err)
				if errors.Is(err, ErrNotHeld) {
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// PGAdvisoryLock holds pg_try_advisory_lock on a pinned connection, since
// advisory locks belong to the session that took them.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock derives a stable 64-bit lock id from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	if l.conn != nil {
		return false, nil
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("distlock: pin connection: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("distlock: advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("distlock: advisory unlock %d: %w", l.lockID, err)
	}
	return nil
}
