// Package service exposes memoized analytics over a trade store and keeps
// the memo coherent with the store's contents.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/analytics"
	"trade-journal/internal/cache"
	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// summaryMetric is the cache-key name used for Summary results.
const summaryMetric = "summary"

// State reports whether the service is computing a metric.
type State int32

const (
	StateIdle State = iota
	StateRecomputing
)

func (s State) String() string {
	if s == StateRecomputing {
		return "recomputing"
	}
	return "idle"
}

// Loader re-reads trades into the store from durable storage.
type Loader func(ctx context.Context) error

// Option configures a Service.
type Option func(*Service)

// WithLoader sets the loader used by Reset.
func WithLoader(l Loader) Option {
	return func(s *Service) { s.loader = l }
}

// WithSummaryCache replaces the cache used for Summary results.
func WithSummaryCache(c *cache.Cache[analytics.Summary]) Option {
	return func(s *Service) { s.summaries = c }
}

// Service is the analytics façade. It must be initialized with Init and
// torn down with Dispose.
type Service struct {
	store     store.TradeReader
	cache     *cache.Cache[models.MetricSeries]
	summaries *cache.Cache[analytics.Summary]
	registry  *analytics.Registry
	loader    Loader
	logger    zerolog.Logger

	state atomic.Int32

	mu          sync.Mutex
	unsubscribe func()
	disposed    bool

	// cacheMu orders cache writes against invalidation.
	cacheMu sync.Mutex

	subMu     sync.Mutex
	listeners []subscription
	nextSub   uint64
}

type subscription struct {
	id uint64
	fn store.Listener
}

// New creates a service over ts. A nil registry means the built-in metrics.
func New(ts store.TradeReader, c *cache.Cache[models.MetricSeries], registry *analytics.Registry, logger zerolog.Logger, opts ...Option) *Service {
	if registry == nil {
		registry = analytics.DefaultRegistry()
	}
	s := &Service{
		store:    ts,
		cache:    c,
		registry: registry,
		logger:   logging.WithAccount(logging.WithComponent(logger, "analytics"), ts.AccountID()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.summaries == nil {
		s.summaries = cache.New[analytics.Summary](cache.WithTTL(c.TTL()))
	}
	return s
}

// Init subscribes the service to store changes. Calling it again is a no-op.
func (s *Service) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return errors.ErrServiceDisposed
	}
	if s.unsubscribe != nil {
		return nil
	}
	s.unsubscribe = s.store.Subscribe(s.onChange)
	s.logger.Debug().Msg("Analytics service initialized")
	return nil
}

// Dispose unsubscribes from the store, drops the account's cached results
// and forgets every subscriber. It is idempotent.
func (s *Service) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.invalidate()

	s.subMu.Lock()
	s.listeners = nil
	s.subMu.Unlock()

	s.logger.Debug().Msg("Analytics service disposed")
}

func (s *Service) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// State returns the current computation state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Metrics lists the metric names GetMetric accepts.
func (s *Service) Metrics() []string {
	return s.registry.Names()
}

// GetMetric returns the named metric for params, computing it against the
// current store snapshot on a cache miss.
func (s *Service) GetMetric(name string, params models.MetricParams) (models.MetricSeries, error) {
	if s.isDisposed() {
		return models.MetricSeries{}, errors.ErrServiceDisposed
	}

	fn, err := s.registry.Lookup(name)
	if err != nil {
		return models.MetricSeries{}, err
	}

	key := cache.Key(name, s.store.AccountID(), params.Signature())
	if series, ok := s.cache.Get(key); ok {
		return series.Clone(), nil
	}

	s.state.Store(int32(StateRecomputing))
	defer s.state.Store(int32(StateIdle))

	start := time.Now()
	version := s.store.Version()
	series := fn(analytics.Filter(s.store.GetAllTrades(), params), params)
	s.setIfCurrent(version, func() { s.cache.Set(key, series.Clone()) })

	logging.LogRecompute(s.logger, name, key, series.Len(), time.Since(start))
	return series, nil
}

// Summary returns aggregate statistics over the trades selected by params.
func (s *Service) Summary(params models.MetricParams) (analytics.Summary, error) {
	if s.isDisposed() {
		return analytics.Summary{}, errors.ErrServiceDisposed
	}

	key := cache.Key(summaryMetric, s.store.AccountID(), params.Signature())
	if summary, ok := s.summaries.Get(key); ok {
		return summary.Clone(), nil
	}

	s.state.Store(int32(StateRecomputing))
	defer s.state.Store(int32(StateIdle))

	start := time.Now()
	version := s.store.Version()
	summary := analytics.Summarize(analytics.Filter(s.store.GetAllTrades(), params))
	s.setIfCurrent(version, func() { s.summaries.Set(key, summary.Clone()) })

	logging.LogRecompute(s.logger, summaryMetric, key, summary.TotalTrades, time.Since(start))
	return summary, nil
}

// Subscribe registers fn to be called after the service has processed a
// store change. Registrations are independent; unsubscribing twice is a
// no-op.
func (s *Service) Subscribe(fn store.Listener) func() {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Reset drops the account's cached results and, when a loader is
// configured, reloads the store from it.
func (s *Service) Reset(ctx context.Context) error {
	if s.isDisposed() {
		return errors.ErrServiceDisposed
	}

	n := s.invalidate()
	s.logger.Debug().Int("evicted", n).Msg("Analytics cache reset")

	if s.loader == nil {
		return nil
	}
	if err := s.loader(ctx); err != nil {
		return errors.Wrap(err, "reloading trades")
	}
	return nil
}

// setIfCurrent runs set only while the store is still at version. The store
// bumps its version before notifying, so a replace that races a computation
// either fails the check or invalidates after set under the same lock.
func (s *Service) setIfCurrent(version uint64, set func()) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.store.Version() == version {
		set()
	}
}

func (s *Service) invalidate() int {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	account := s.store.AccountID()
	return s.cache.DeleteAccount(account) + s.summaries.DeleteAccount(account)
}

// Cleanup sweeps expired entries from the metric and summary caches.
func (s *Service) Cleanup() int {
	return s.cache.Cleanup() + s.summaries.Cleanup()
}

// Len is the number of cached metric and summary entries.
func (s *Service) Len() int {
	return s.cache.Len() + s.summaries.Len()
}

// onChange invalidates every cached result for the account, then forwards
// the change to subscribers in registration order.
func (s *Service) onChange(change store.Change) {
	n := s.invalidate()
	s.logger.Debug().
		Uint64("version", change.Version).
		Int("trades", change.Trades).
		Int("evicted", n).
		Msg("Trades changed")

	s.subMu.Lock()
	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.subMu.Unlock()

	for _, sub := range listeners {
		sub.fn(change)
	}
}
