// Package store holds the canonical set of imported trades and mirrors it to
// SQLite.
package store

import (
	"sync"

	"trade-journal/internal/models"
)

// Change describes a mutation of the trade collection.
type Change struct {
	AccountID string
	Version   uint64
	Trades    int
}

// Listener is notified synchronously after every mutation.
type Listener func(Change)

// TradeReader is the read side of the store used by analytics.
type TradeReader interface {
	AccountID() string
	Version() uint64
	GetAllTrades() []models.TradeRecord
	Subscribe(fn Listener) (unsubscribe func())
}

// TradeStore holds the trades of one account for the session. It performs no
// validation: records are expected to come from importer.ParseTradeRecord.
type TradeStore struct {
	accountID string

	mu      sync.RWMutex
	trades  []models.TradeRecord
	version uint64

	subMu     sync.Mutex
	listeners []subscription
	nextSub   uint64
}

type subscription struct {
	id uint64
	fn Listener
}

// NewTradeStore creates an empty store for accountID.
func NewTradeStore(accountID string) *TradeStore {
	return &TradeStore{
		accountID: accountID,
		trades:    []models.TradeRecord{},
	}
}

// AccountID returns the account the store holds trades for.
func (s *TradeStore) AccountID() string {
	return s.accountID
}

// Version increases by one on every mutation.
func (s *TradeStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of held trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}

// GetAllTrades returns a deep copy of the current trades in stored order.
// The result is never nil.
func (s *TradeStore) GetAllTrades() []models.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTrades(s.trades)
}

// ReplaceTrades swaps the whole collection, then notifies every listener in
// registration order. Each call runs its own notify cycle.
func (s *TradeStore) ReplaceTrades(trades []models.TradeRecord) {
	next := cloneTrades(trades)

	s.mu.Lock()
	s.trades = next
	s.version++
	change := Change{AccountID: s.accountID, Version: s.version, Trades: len(next)}
	s.mu.Unlock()

	s.notify(change)
}

// ClearData removes every trade.
func (s *TradeStore) ClearData() {
	s.ReplaceTrades(nil)
}

// Subscribe registers fn and returns its unsubscribe func. Registrations are
// independent even for the same fn; unsubscribing twice is a no-op.
func (s *TradeStore) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *TradeStore) unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for i, sub := range s.listeners {
		if sub.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// notify runs listeners outside the locks so they may read the store or
// unsubscribe themselves.
func (s *TradeStore) notify(change Change) {
	s.subMu.Lock()
	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.subMu.Unlock()

	for _, sub := range listeners {
		sub.fn(change)
	}
}

func cloneTrades(trades []models.TradeRecord) []models.TradeRecord {
	out := make([]models.TradeRecord, len(trades))
	for i, t := range trades {
		out[i] = t.Clone()
	}
	return out
}
