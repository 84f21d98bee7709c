package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// bucket accumulates count and P&L for one label.
type bucket struct {
	label string
	count int
	pnl   decimal.Decimal
}

// add counts t unless its net P&L is not a finite number.
func (b *bucket) add(t models.TradeRecord) {
	if !finite(t.NetPnL) {
		return
	}
	b.count++
	b.pnl = b.pnl.Add(amount(t.NetPnL))
}

func (b *bucket) point() models.Point {
	v := b.pnl.InexactFloat64()
	return models.Point{Date: b.label, Value: v, PnL: ptr(v), Count: b.count}
}

// DayOfWeek buckets trades by the local weekday of their open date. When at
// least one trade is dated, all seven days are emitted Sunday first so
// charts keep a fixed axis.
func DayOfWeek(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("P&L by Day of Week", colorNeutral, p)

	var days [7]bucket
	for i := range days {
		days[i].label = time.Weekday(i).String()
	}

	dated := 0
	for _, t := range trades {
		if t.OpenDate.IsZero() {
			continue
		}
		days[t.OpenDate.Weekday()].add(t)
		dated++
	}
	if dated == 0 {
		return series
	}

	for i := range days {
		series.Data = append(series.Data, days[i].point())
	}
	return series
}

// HourOfDay buckets trades by the local hour of their open time. Only hours
// with trades are emitted, in ascending order.
func HourOfDay(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("P&L by Hour", colorNeutral, p)

	var hours [24]bucket
	for _, t := range trades {
		if t.OpenDate.IsZero() {
			continue
		}
		hours[t.OpenDate.Hour()].add(t)
	}

	for h := range hours {
		if hours[h].count == 0 {
			continue
		}
		hours[h].label = fmt.Sprintf("%02d:00", h)
		series.Data = append(series.Data, hours[h].point())
	}
	return series
}

// ExpirationLabels lists the days-to-expiration buckets in axis order.
var ExpirationLabels = []string{
	"Same day", "1 day", "2 days", "3 days", "4 days",
	"5 days", "6 days", "7 days", "8 days", "9 days", "10+ days",
}

// ExpirationBucket labels the calendar-day distance between opening a trade
// and the contract's expiration. ok is false for negative distances.
func ExpirationBucket(diffDays int) (label string, ok bool) {
	switch {
	case diffDays < 0:
		return "", false
	case diffDays >= 10:
		return ExpirationLabels[10], true
	default:
		return ExpirationLabels[diffDays], true
	}
}

// DaysToExpiration buckets trades by calendar days from open to expiration.
// Trades with no expiration, or one before the open, are skipped. Empty
// buckets are omitted.
func DaysToExpiration(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("P&L by Days to Expiration", colorAccent, p)

	buckets := make([]bucket, len(ExpirationLabels))
	for i, label := range ExpirationLabels {
		buckets[i].label = label
	}

	for _, t := range trades {
		if t.ExpirationDate == nil || t.OpenDate.IsZero() {
			continue
		}
		diff := utils.DiffDays(t.OpenDate, *t.ExpirationDate)
		if _, ok := ExpirationBucket(diff); !ok {
			continue
		}
		if diff > 10 {
			diff = 10
		}
		buckets[diff].add(t)
	}

	for i := range buckets {
		if buckets[i].count > 0 {
			series.Data = append(series.Data, buckets[i].point())
		}
	}
	return series
}

// SymbolPnL sums net P&L per symbol, ordered by symbol.
func SymbolPnL(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("P&L by Symbol", colorPositive, p)

	bySymbol := make(map[string]*bucket)
	for _, t := range trades {
		if !finite(t.NetPnL) {
			continue
		}
		b, ok := bySymbol[t.Symbol]
		if !ok {
			b = &bucket{label: t.Symbol}
			bySymbol[t.Symbol] = b
		}
		b.add(t)
	}

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, s := range symbols {
		series.Data = append(series.Data, bySymbol[s].point())
	}
	return series
}
