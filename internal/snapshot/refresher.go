package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/visitor-insights/internal/company"
	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/insights"
	"github.com/ignite/visitor-insights/internal/pkg/distlock"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
	"github.com/ignite/visitor-insights/internal/source"
	"github.com/ignite/visitor-insights/internal/storage"
	"github.com/ignite/visitor-insights/internal/visitor"
)

// DefaultInterval is how often Start refreshes.
const DefaultInterval = 5 * time.Minute

// Refresher runs fetch, adapt, sessionize, enrich and save.
type Refresher struct {
	src        source.Source
	adapter    *datanorm.Adapter
	store      Store
	resolver   company.Resolver
	lock       distlock.DistLock
	archive    storage.Store
	sessionize bool
	interval   time.Duration
	now        func() time.Time
	log        *logger.Logger

	// running guards against overlapping refreshes in this process
	running sync.Mutex
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithResolver attributes records without a company.
func WithResolver(r company.Resolver) Option {
	return func(rf *Refresher) { rf.resolver = r }
}

// WithLock serializes refreshes across replicas.
func WithLock(l distlock.DistLock) Option {
	return func(rf *Refresher) { rf.lock = l }
}

// WithArchive copies every batch to object storage.
func WithArchive(s storage.Store) Option {
	return func(rf *Refresher) { rf.archive = s }
}

// WithSessionize rolls rows up into sessions before classifying.
func WithSessionize(on bool) Option {
	return func(rf *Refresher) { rf.sessionize = on }
}

// WithInterval sets the Start period.
func WithInterval(d time.Duration) Option {
	return func(rf *Refresher) {
		if d > 0 {
			rf.interval = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(rf *Refresher) { rf.now = now }
}

// NewRefresher creates a Refresher. A nil adapter uses datanorm defaults.
func NewRefresher(src source.Source, adapter *datanorm.Adapter, store Store, opts ...Option) *Refresher {
	if adapter == nil {
		adapter = datanorm.NewAdapter()
	}
	rf := &Refresher{
		src:      src,
		adapter:  adapter,
		store:    store,
		interval: DefaultInterval,
		now:      time.Now,
		log:      logger.New("snapshot"),
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Start refreshes once, then on every tick until ctx is canceled.
func (rf *Refresher) Start(ctx context.Context) {
	rf.log.Info("refresher starting", "source", rf.src.Name(), "interval", rf.interval.String())
	rf.tick(ctx)

	ticker := time.NewTicker(rf.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rf.log.Info("refresher stopping")
			return
		case <-ticker.C:
			rf.tick(ctx)
		}
	}
}

func (rf *Refresher) tick(ctx context.Context) {
	if _, _, err := rf.Refresh(ctx); err != nil && ctx.Err() == nil {
		rf.log.Error("refresh failed", "source", rf.src.Name(), "error", err)
	}
}

// Refresh builds and saves a new batch. When another replica holds the
// lock, or a refresh is already running here, it returns (nil, false, nil).
func (rf *Refresher) Refresh(ctx context.Context) (*Batch, bool, error) {
	if !rf.running.TryLock() {
		return nil, false, nil
	}
	defer rf.running.Unlock()

	if rf.lock == nil {
		b, err := rf.run(ctx)
		return b, err == nil, err
	}

	var b *Batch
	ran, err := distlock.WithLock(ctx, rf.lock, func(ctx context.Context) error {
		var err error
		b, err = rf.run(ctx)
		return err
	})
	if !ran && err == nil {
		rf.log.Debug("refresh skipped, lock held elsewhere", "source", rf.src.Name())
	}
	if err != nil {
		return nil, ran, err
	}
	return b, ran, nil
}

func (rf *Refresher) run(ctx context.Context) (*Batch, error) {
	start := rf.now()

	rows, err := rf.src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rf.src.Name(), err)
	}
	res, err := rf.adapter.AdaptAll(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("adapt %s: %w", rf.src.Name(), err)
	}

	records := res.Records
	if rf.sessionize {
		if records, err = visitor.Sessionize(records); err != nil {
			return nil, fmt.Errorf("sessionize: %w", err)
		}
	}
	if rf.resolver != nil {
		if records, err = company.Enrich(ctx, rf.resolver, records); err != nil {
			return nil, fmt.Errorf("resolve companies: %w", err)
		}
	}

	b := &Batch{
		Source:      rf.src.Name(),
		Records:     records,
		Issues:      res.Issues,
		RefreshedAt: rf.now().UTC(),
	}
	if err := rf.store.Save(ctx, b); err != nil {
		return nil, err
	}
	if rf.archive != nil {
		key := ArchiveKey(b.RefreshedAt)
		if err := storage.SaveJSON(ctx, rf.archive, key, b); err != nil {
			// the live snapshot is already saved
			rf.log.Warn("archive failed", "key", key, "error", err)
		}
	}

	rf.log.Info("snapshot refreshed",
		"source", b.Source,
		"records", len(b.Records),
		"issues", len(b.Issues),
		"elapsed_ms", rf.now().Sub(start).Milliseconds())
	return b, nil
}

// ArchiveKey is the object key for a batch refreshed at t.
func ArchiveKey(t time.Time) string {
	return "snapshots/" + t.UTC().Format("2006/01/02/150405") + ".json"
}

// Latest returns the saved batch, refreshing first if there is none yet.
func (rf *Refresher) Latest(ctx context.Context) (*Batch, error) {
	b, err := rf.store.Latest(ctx)
	if !errors.Is(err, ErrNoSnapshot) {
		return b, err
	}
	b, ran, err := rf.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if !ran {
		// another replica is refreshing; serve whatever it saved
		return rf.store.Latest(ctx)
	}
	return b, nil
}

// Records returns the latest classified records.
func (rf *Refresher) Records(ctx context.Context) ([]visitor.Record, error) {
	b, err := rf.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return b.Records, nil
}

// Summary aggregates the latest batch.
func (rf *Refresher) Summary(ctx context.Context) (insights.Summary, error) {
	b, err := rf.Latest(ctx)
	if err != nil {
		return insights.Summary{}, err
	}
	return insights.Summarize(b.Records, rf.now()), nil
}
