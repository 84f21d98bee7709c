package analytics

import (
	"math"

	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// RMultiple is the risk-normalized outcome of one trade. Realized is net P&L
// over the per-unit risk |entry - stop|. Position divides by the risk of the
// whole position instead and needs a positive quantity. Fields are nil when
// the trade does not carry enough information to compute them.
type RMultiple struct {
	TradeID  string   `json:"tradeId"`
	Symbol   string   `json:"symbol"`
	Realized *float64 `json:"realized"`
	Planned  *float64 `json:"planned"`
	Position *float64 `json:"position,omitempty"`
}

// riskPerUnit is |entry - stop|, or 0 when there is no usable stop.
func riskPerUnit(t models.TradeRecord) float64 {
	if t.StopLoss == nil {
		return 0
	}
	risk := math.Abs(t.EntryPrice - *t.StopLoss)
	if !finite(risk) {
		return 0
	}
	return risk
}

// ComputeRMultiple returns the realized and planned R of t.
func ComputeRMultiple(t models.TradeRecord) RMultiple {
	r := RMultiple{TradeID: t.ID, Symbol: t.Symbol}

	risk := riskPerUnit(t)
	if risk == 0 {
		return r
	}

	if v := t.NetPnL / risk; finite(v) {
		r.Realized = ptr(v)
	}
	if t.Quantity > 0 {
		if v := t.NetPnL / (risk * t.Quantity); finite(v) {
			r.Position = ptr(v)
		}
	}
	if t.ProfitTarget != nil {
		if v := math.Abs(*t.ProfitTarget-t.EntryPrice) / risk; finite(v) {
			r.Planned = ptr(v)
		}
	}
	return r
}

// ComputeRMultiples maps ComputeRMultiple over trades in input order.
func ComputeRMultiples(trades []models.TradeRecord) []RMultiple {
	out := make([]RMultiple, len(trades))
	for i, t := range trades {
		out[i] = ComputeRMultiple(t)
	}
	return out
}

// AverageR is the mean realized R over trades where it is defined. It
// returns nil when no trade has a defined R.
func AverageR(rs []RMultiple) *float64 {
	var sum float64
	var n int
	for _, r := range rs {
		if r.Realized == nil {
			continue
		}
		sum += *r.Realized
		n++
	}
	if n == 0 {
		return nil
	}
	return ptr(sum / float64(n))
}

// RMultipleSeries emits the realized R of each trade that has one, in
// chronological order. Trades without a stop are left out.
func RMultipleSeries(trades []models.TradeRecord, p models.MetricParams) models.MetricSeries {
	series := newSeries("R-Multiple", colorAccent, p)
	for _, t := range chronological(trades) {
		r := ComputeRMultiple(t)
		if r.Realized == nil {
			continue
		}
		series.Data = append(series.Data, models.Point{
			Date:  utils.DayLabel(t.OpenDate),
			Value: *r.Realized,
			PnL:   ptr(t.NetPnL),
			At:    utils.LocalDay(t.OpenDate),
		})
	}
	return series
}
