package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func f(v float64) *float64 { return &v }

func TestEquityCurve_Example(t *testing.T) {
	trades := []models.TradeRecord{
		{ID: "2", Symbol: "ES", OpenDate: day(2024, 1, 2), NetPnL: -50},
		{ID: "1", Symbol: "ES", OpenDate: day(2024, 1, 1), NetPnL: 100},
	}

	series := EquityCurve(trades, models.MetricParams{StartingBalance: 1000})
	require.Len(t, series.Data, 2)

	assert.Equal(t, "1/1", series.Data[0].Date)
	assert.Equal(t, 100.0, *series.Data[0].PnL)
	assert.Equal(t, 1100.0, *series.Data[0].Equity)
	assert.Equal(t, 1100.0, series.Data[0].Value)

	assert.Equal(t, "1/2", series.Data[1].Date)
	assert.Equal(t, 50.0, *series.Data[1].PnL)
	assert.Equal(t, 1050.0, *series.Data[1].Equity)
}

func TestEquityCurve_SkipsUndatedAndKeepsTies(t *testing.T) {
	ts := day(2024, 3, 1)
	trades := []models.TradeRecord{
		{ID: "a", OpenDate: ts, NetPnL: 10},
		{ID: "nodate", NetPnL: 1000},
		{ID: "b", OpenDate: ts, NetPnL: 20},
	}

	series := EquityCurve(trades, models.MetricParams{})
	require.Len(t, series.Data, 2)
	assert.Equal(t, 10.0, series.Data[0].Value)
	assert.Equal(t, 30.0, series.Data[1].Value)
}

func TestEquityCurve_DecimalAccumulation(t *testing.T) {
	var trades []models.TradeRecord
	for i := 0; i < 10; i++ {
		trades = append(trades, models.TradeRecord{OpenDate: day(2024, 1, 1).Add(time.Duration(i) * time.Minute), NetPnL: 0.1})
	}
	series := CumulativePnL(trades, models.MetricParams{})
	assert.Equal(t, 1.0, series.Data[9].Value)
}

func TestMetrics_EmptyInput(t *testing.T) {
	for _, name := range DefaultRegistry().Names() {
		fn, err := DefaultRegistry().Lookup(name)
		require.NoError(t, err)

		series := fn(nil, models.MetricParams{Timeframe: "1M"})
		assert.NotNil(t, series.Data, name)
		assert.Empty(t, series.Data, name)
		assert.NotEmpty(t, series.Title, name)
		assert.Equal(t, "1M", series.Timeframe, name)
	}
}

func TestMetrics_SkipNonFinitePnL(t *testing.T) {
	exp := day(2024, 1, 3)
	trades := []models.TradeRecord{
		{ID: "ok", Symbol: "ES", OpenDate: day(2024, 1, 1), NetPnL: 100, ExpirationDate: &exp},
		{ID: "inf", Symbol: "NQ", OpenDate: day(2024, 1, 2), NetPnL: math.Inf(1), ExpirationDate: &exp},
		{ID: "nan", Symbol: "CL", OpenDate: day(2024, 1, 2), NetPnL: math.NaN(), Commission: math.Inf(-1)},
	}

	for _, name := range DefaultRegistry().Names() {
		fn, err := DefaultRegistry().Lookup(name)
		require.NoError(t, err)
		assert.NotPanics(t, func() { fn(trades, models.MetricParams{StartingBalance: math.NaN()}) }, name)
	}

	equity := EquityCurve(trades, models.MetricParams{StartingBalance: 1000})
	require.Len(t, equity.Data, 1)
	assert.Equal(t, 1100.0, equity.Data[0].Value)

	symbols := SymbolPnL(trades, models.MetricParams{})
	require.Len(t, symbols.Data, 1)
	assert.Equal(t, "ES", symbols.Data[0].Date)

	var s Summary
	require.NotPanics(t, func() { s = Summarize(trades) })
	assert.Equal(t, 1, s.TotalTrades)
	assert.Equal(t, 100.0, s.NetPnL)
	assert.Equal(t, 0.0, s.Commission)
}

func TestDailyPnL(t *testing.T) {
	trades := []models.TradeRecord{
		{OpenDate: day(2024, 1, 2).Add(15 * time.Hour), NetPnL: -20},
		{OpenDate: day(2024, 1, 1).Add(9 * time.Hour), NetPnL: 100},
		{OpenDate: day(2024, 1, 1).Add(23 * time.Hour), NetPnL: 50},
	}

	series := DailyPnL(trades, models.MetricParams{})
	require.Len(t, series.Data, 2)
	assert.Equal(t, "1/1", series.Data[0].Date)
	assert.Equal(t, 150.0, series.Data[0].Value)
	assert.Equal(t, 2, series.Data[0].Count)
	assert.Equal(t, -20.0, series.Data[1].Value)
	assert.Equal(t, 1, series.Data[1].Count)
}

func TestWinRate(t *testing.T) {
	trades := []models.TradeRecord{
		{OpenDate: day(2024, 1, 1), NetPnL: 10},
		{OpenDate: day(2024, 1, 2), NetPnL: -10},
		{OpenDate: day(2024, 1, 3), NetPnL: 0},
		{OpenDate: day(2024, 1, 4), NetPnL: 5},
	}
	series := WinRate(trades, models.MetricParams{})
	require.Len(t, series.Data, 4)
	assert.Equal(t, 100.0, series.Data[0].Value)
	assert.Equal(t, 50.0, series.Data[1].Value)
	assert.Equal(t, 50.0, series.Data[3].Value)
}

func TestComputeRMultiple(t *testing.T) {
	tests := []struct {
		name     string
		trade    models.TradeRecord
		realized *float64
		planned  *float64
		position *float64
	}{
		{
			name:  "no stop",
			trade: models.TradeRecord{EntryPrice: 100, NetPnL: 50, Quantity: 1},
		},
		{
			name:  "zero risk",
			trade: models.TradeRecord{EntryPrice: 100, StopLoss: f(100), NetPnL: 50, Quantity: 1},
		},
		{
			name:     "realized ignores quantity",
			trade:    models.TradeRecord{EntryPrice: 100, StopLoss: f(95), NetPnL: 100, Quantity: 10},
			realized: f(20),
			position: f(2),
		},
		{
			name:     "with target",
			trade:    models.TradeRecord{EntryPrice: 100, StopLoss: f(98), ProfitTarget: f(106), NetPnL: 400, Quantity: 100},
			realized: f(200),
			planned:  f(3),
			position: f(2),
		},
		{
			name:     "no quantity",
			trade:    models.TradeRecord{EntryPrice: 50, StopLoss: f(52), NetPnL: -4},
			realized: f(-2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeRMultiple(tt.trade)
			assert.Equal(t, tt.realized, r.Realized)
			assert.Equal(t, tt.planned, r.Planned)
			assert.Equal(t, tt.position, r.Position)
		})
	}
}

func TestAverageR_IgnoresUndefined(t *testing.T) {
	rs := []RMultiple{{Realized: f(2)}, {}, {Realized: f(-1)}}
	avg := AverageR(rs)
	require.NotNil(t, avg)
	assert.Equal(t, 0.5, *avg)

	assert.Nil(t, AverageR([]RMultiple{{}, {}}))
}

// Property: a trade without a stop never produces a realized R, and no R is
// ever NaN.
func TestProperty_RMultipleNeverNaN(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("missing stop gives nil R", prop.ForAll(
		func(entry, pnl, qty float64) bool {
			r := ComputeRMultiple(models.TradeRecord{EntryPrice: entry, NetPnL: pnl, Quantity: qty})
			return r.Realized == nil && r.Planned == nil
		},
		gen.Float64Range(0, 10000),
		gen.Float64Range(-10000, 10000),
		gen.Float64Range(0, 1000),
	))

	properties.Property("defined R is finite", prop.ForAll(
		func(entry, stop, pnl, qty float64) bool {
			r := ComputeRMultiple(models.TradeRecord{EntryPrice: entry, StopLoss: &stop, NetPnL: pnl, Quantity: qty})
			if r.Realized == nil {
				return entry == stop
			}
			return !math.IsNaN(*r.Realized) && !math.IsInf(*r.Realized, 0)
		},
		gen.Float64Range(1, 10000),
		gen.Float64Range(1, 10000),
		gen.Float64Range(-10000, 10000),
		gen.Float64Range(0, 1000),
	))

	properties.TestingRun(t)
}

// Property: equity curve dates are ascending for any input order.
func TestProperty_EquityCurveAscending(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("points ascend by day", prop.ForAll(
		func(offsets []int) bool {
			trades := make([]models.TradeRecord, len(offsets))
			for i, o := range offsets {
				trades[i] = models.TradeRecord{OpenDate: day(2024, 1, 1).AddDate(0, 0, o), NetPnL: float64(o)}
			}
			series := EquityCurve(trades, models.MetricParams{})
			if len(series.Data) != len(trades) {
				return false
			}
			for i := 1; i < len(series.Data); i++ {
				if series.Data[i].At.Before(series.Data[i-1].At) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 365)),
	))

	properties.TestingRun(t)
}

func TestDaysToExpiration(t *testing.T) {
	exp := func(tm time.Time) *time.Time { return &tm }
	trades := []models.TradeRecord{
		{OpenDate: day(2024, 1, 1), ExpirationDate: exp(day(2024, 1, 3)), NetPnL: 10},
		{OpenDate: day(2024, 1, 1).Add(15 * time.Hour), ExpirationDate: exp(day(2024, 1, 1)), NetPnL: 5},
		{OpenDate: day(2024, 1, 1), ExpirationDate: exp(day(2024, 3, 1)), NetPnL: 1},
		{OpenDate: day(2024, 1, 5), ExpirationDate: exp(day(2024, 1, 3)), NetPnL: 99},
		{OpenDate: day(2024, 1, 5), NetPnL: 99},
	}

	series := DaysToExpiration(trades, models.MetricParams{})
	require.Len(t, series.Data, 3)
	assert.Equal(t, "Same day", series.Data[0].Date)
	assert.Equal(t, "2 days", series.Data[1].Date)
	assert.Equal(t, 10.0, series.Data[1].Value)
	assert.Equal(t, 1, series.Data[1].Count)
	assert.Equal(t, "10+ days", series.Data[2].Date)
}

func TestExpirationBucket(t *testing.T) {
	tests := map[int]string{0: "Same day", 1: "1 day", 2: "2 days", 9: "9 days", 10: "10+ days", 45: "10+ days"}
	for diff, want := range tests {
		got, ok := ExpirationBucket(diff)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ExpirationBucket(-1)
	assert.False(t, ok)
}

func TestDayOfWeek(t *testing.T) {
	trades := []models.TradeRecord{
		{OpenDate: day(2024, 1, 1), NetPnL: 100}, // Monday
		{OpenDate: day(2024, 1, 8), NetPnL: -40}, // Monday
		{OpenDate: day(2024, 1, 5), NetPnL: 10},  // Friday
	}

	series := DayOfWeek(trades, models.MetricParams{})
	require.Len(t, series.Data, 7)
	assert.Equal(t, "Sunday", series.Data[0].Date)
	assert.Equal(t, "Monday", series.Data[1].Date)
	assert.Equal(t, 60.0, series.Data[1].Value)
	assert.Equal(t, 2, series.Data[1].Count)
	assert.Equal(t, 10.0, series.Data[5].Value)
	assert.Equal(t, 0, series.Data[3].Count)
}

func TestHourOfDay(t *testing.T) {
	trades := []models.TradeRecord{
		{OpenDate: day(2024, 1, 1).Add(9*time.Hour + 30*time.Minute), NetPnL: 1},
		{OpenDate: day(2024, 1, 2).Add(9 * time.Hour), NetPnL: 2},
		{OpenDate: day(2024, 1, 2).Add(14 * time.Hour), NetPnL: 3},
	}
	series := HourOfDay(trades, models.MetricParams{})
	require.Len(t, series.Data, 2)
	assert.Equal(t, "09:00", series.Data[0].Date)
	assert.Equal(t, 3.0, series.Data[0].Value)
	assert.Equal(t, "14:00", series.Data[1].Date)
}

func TestSymbolPnL(t *testing.T) {
	trades := []models.TradeRecord{
		{Symbol: "NQ", NetPnL: 10},
		{Symbol: "ES", NetPnL: 5},
		{Symbol: "NQ", NetPnL: -3},
	}
	series := SymbolPnL(trades, models.MetricParams{})
	require.Len(t, series.Data, 2)
	assert.Equal(t, "ES", series.Data[0].Date)
	assert.Equal(t, "NQ", series.Data[1].Date)
	assert.Equal(t, 7.0, series.Data[1].Value)
}

func TestSummarize(t *testing.T) {
	trades := []models.TradeRecord{
		{NetPnL: 300, EntryPrice: 100, StopLoss: f(99), Quantity: 100},
		{NetPnL: -100, EntryPrice: 100, StopLoss: f(99), Quantity: 100},
		{NetPnL: 100},
		{NetPnL: 0},
	}

	s := Summarize(trades)
	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 1, s.Breakeven)
	assert.Equal(t, 50.0, s.WinRate)
	assert.Equal(t, 300.0, s.NetPnL)
	assert.Equal(t, 400.0, s.GrossProfit)
	assert.Equal(t, -100.0, s.GrossLoss)
	assert.Equal(t, 4.0, s.ProfitFactor)
	assert.Equal(t, 200.0, s.AverageWin)
	assert.Equal(t, -100.0, s.AverageLoss)
	assert.Equal(t, 75.0, s.Expectancy)
	assert.Equal(t, 300.0, s.LargestWin)
	assert.Equal(t, -100.0, s.LargestLoss)
	require.NotNil(t, s.AverageR)
	assert.Equal(t, 100.0, *s.AverageR)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.TotalTrades)
	assert.Nil(t, empty.AverageR)
}

func TestRegistry_Lookup(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Lookup(MetricEquityCurve)
	require.NoError(t, err)

	_, err = r.Lookup("sharpe")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownMetric))

	var me *errors.MetricError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "sharpe", me.Metric)

	assert.Contains(t, r.Names(), MetricDaysToExpiration)
	assert.Len(t, r.Names(), 9)
}

func TestFilter(t *testing.T) {
	trades := []models.TradeRecord{
		{ID: "1", Symbol: "ES", Side: models.SideLong, OpenDate: day(2024, 1, 1).Add(20 * time.Hour)},
		{ID: "2", Symbol: "NQ", Side: models.SideShort, OpenDate: day(2024, 1, 2)},
		{ID: "3", Symbol: "ES", Side: models.SideShort, OpenDate: day(2024, 1, 3)},
		{ID: "4", Symbol: "ES", Side: models.SideLong},
	}

	ids := func(ts []models.TradeRecord) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(Filter(trades, models.MetricParams{})))
	assert.Equal(t, []string{"1", "3", "4"}, ids(Filter(trades, models.MetricParams{Symbol: "es"})))
	assert.Equal(t, []string{"2", "3"}, ids(Filter(trades, models.MetricParams{Side: models.SideShort})))
	assert.Equal(t, []string{"1", "2"}, ids(Filter(trades, models.MetricParams{From: day(2024, 1, 1), To: day(2024, 1, 2)})))
}
