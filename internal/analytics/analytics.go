// Package analytics computes derived metric series from a trade collection.
// Every function here is pure: it never mutates its input and returns an
// empty series, not an error, when there is nothing to compute.
package analytics

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// Metric names understood by the default registry.
const (
	MetricEquityCurve      = "equity-curve"
	MetricCumulativePnL    = "cumulative-pnl"
	MetricDailyPnL         = "daily-pnl"
	MetricRMultiple        = "r-multiple"
	MetricDayOfWeek        = "day-of-week"
	MetricHourOfDay        = "hour-of-day"
	MetricDaysToExpiration = "days-to-expiration"
	MetricSymbolPnL        = "symbol-pnl"
	MetricWinRate          = "win-rate"
)

// Series colors.
const (
	colorPositive = "#22c55e"
	colorNeutral  = "#3b82f6"
	colorAccent   = "#a855f7"
)

// finite reports whether v is neither NaN nor an infinity.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// amount converts v to a decimal, reading a non-finite value as zero.
func amount(v float64) decimal.Decimal {
	if !finite(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// chronological returns the trades that carry an open date and a finite net
// P&L, stable-sorted ascending by open date. Trades sharing a timestamp keep
// their input order.
func chronological(trades []models.TradeRecord) []models.TradeRecord {
	out := make([]models.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.OpenDate.IsZero() || !finite(t.NetPnL) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b models.TradeRecord) int {
		return a.OpenDate.Compare(b.OpenDate)
	})
	return out
}

func newSeries(title, color string, p models.MetricParams) models.MetricSeries {
	return models.MetricSeries{
		Title:     title,
		Data:      []models.Point{},
		Color:     color,
		Timeframe: p.Timeframe,
	}
}

func ptr(v float64) *float64 {
	return &v
}

// EquityCurve emits one point per trade: the running net P&L and the
// account equity after it.
func EquityCurve(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("Equity Curve", colorPositive, p)
	balance := amount(p.StartingBalance)
	cumulative := decimal.Zero

	for _, t := range chronological(trades) {
		cumulative = cumulative.Add(amount(t.NetPnL))
		equity := balance.Add(cumulative).InexactFloat64()
		series.Data = append(series.Data, models.Point{
			Date:   utils.DayLabel(t.OpenDate),
			Value:  equity,
			PnL:    ptr(cumulative.InexactFloat64()),
			Equity: ptr(equity),
			At:     utils.LocalDay(t.OpenDate),
		})
	}
	return series
}

// CumulativePnL is the running net P&L without a starting balance.
func CumulativePnL(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("Cumulative P&L", colorNeutral, p)
	cumulative := decimal.Zero

	for _, t := range chronological(trades) {
		cumulative = cumulative.Add(amount(t.NetPnL))
		v := cumulative.InexactFloat64()
		series.Data = append(series.Data, models.Point{
			Date:  utils.DayLabel(t.OpenDate),
			Value: v,
			PnL:   ptr(v),
			At:    utils.LocalDay(t.OpenDate),
		})
	}
	return series
}

// DailyPnL sums net P&L per local calendar day of the open date.
func DailyPnL(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("Daily P&L", colorNeutral, p)

	var (
		day   = -1
		sum   decimal.Decimal
		count int
	)
	flush := func() {
		if count == 0 {
			return
		}
		last := series.Data[len(series.Data)-1]
		v := sum.InexactFloat64()
		last.Value, last.PnL, last.Count = v, ptr(v), count
		series.Data[len(series.Data)-1] = last
	}

	for _, t := range chronological(trades) {
		d := utils.LocalDay(t.OpenDate)
		key := d.Year()*1000 + d.YearDay()
		if key != day {
			flush()
			day, sum, count = key, decimal.Zero, 0
			series.Data = append(series.Data, models.Point{Date: utils.DayLabel(d), At: d})
		}
		sum = sum.Add(amount(t.NetPnL))
		count++
	}
	flush()
	return series
}

// WinRate is the rolling percentage of winning trades after each trade.
func WinRate(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("Win Rate", colorAccent, p)
	wins := 0

	for i, t := range chronological(trades) {
		if t.NetPnL > 0 {
			wins++
		}
		series.Data = append(series.Data, models.Point{
			Date:  utils.DayLabel(t.OpenDate),
			Value: float64(wins) / float64(i+1) * 100,
			Count: i + 1,
			At:    utils.LocalDay(t.OpenDate),
		})
	}
	return series
}
