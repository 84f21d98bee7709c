package analytics

import (
	"sort"
	"strings"
	"sync"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// MetricFunc computes a series from trades that were already filtered.
type MetricFunc func(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries

// Registry maps metric names to their computation.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]MetricFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]MetricFunc)}
}

// DefaultRegistry returns a registry holding every built-in metric.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(MetricEquityCurve, EquityCurve)
	r.Register(MetricCumulativePnL, CumulativePnL)
	r.Register(MetricDailyPnL, DailyPnL)
	r.Register(MetricRMultiple, RMultipleSeries)
	r.Register(MetricDayOfWeek, DayOfWeek)
	r.Register(MetricHourOfDay, HourOfDay)
	r.Register(MetricDaysToExpiration, DaysToExpiration)
	r.Register(MetricSymbolPnL, SymbolPnL)
	r.Register(MetricWinRate, WinRate)
	return r
}

// Register adds or replaces a metric.
func (r *Registry) Register(name string, fn MetricFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[name] = fn
}

// Lookup returns the metric registered under name.
func (r *Registry) Lookup(name string) (MetricFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.metrics[name]
	if !ok {
		return nil, errors.NewMetricError(name, errors.ErrUnknownMetric)
	}
	return fn, nil
}

// Names lists registered metrics alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter keeps the trades matching the From/To/Symbol/Side params. From and
// To are compared by local calendar day and are inclusive. Trades without
// an open date only survive when no date bound is set.
func Filter(trades []models.TradeRecord, p models.MetricParams) []models.TradeRecord {
	out := make([]models.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if p.Symbol != "" && !strings.EqualFold(t.Symbol, p.Symbol) {
			continue
		}
		if p.Side != "" && t.Side != p.Side {
			continue
		}
		if !p.From.IsZero() || !p.To.IsZero() {
			if t.OpenDate.IsZero() {
				continue
			}
			if !p.From.IsZero() && utils.DiffDays(p.From, t.OpenDate) < 0 {
				continue
			}
			if !p.To.IsZero() && utils.DiffDays(t.OpenDate, p.To) < 0 {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
