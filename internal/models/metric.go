package models

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// Point is one x/y pair of a metric series. Date is the x-axis label: a
// "M/D" day label for dated series or a bucket label for categorical ones.
type Point struct {
	Date   string   `json:"date"`
	Value  float64  `json:"value"`
	PnL    *float64 `json:"pnl,omitempty"`
	Equity *float64 `json:"equity,omitempty"`
	Count  int      `json:"count,omitempty"`

	// At is the local calendar day of dated points; zero for buckets.
	At time.Time `json:"-"`
}

// MetricSeries is the output of a metric computation.
type MetricSeries struct {
	Title     string  `json:"title"`
	Data      []Point `json:"data"`
	Color     string  `json:"color,omitempty"`
	Timeframe string  `json:"timeframe,omitempty"`
}

// Len returns the number of points.
func (s MetricSeries) Len() int {
	return len(s.Data)
}

// Clone returns a deep copy so a caller cannot alter a cached series.
func (s MetricSeries) Clone() MetricSeries {
	c := s
	if s.Data == nil {
		return c
	}
	c.Data = make([]Point, len(s.Data))
	for i, p := range s.Data {
		if p.PnL != nil {
			v := *p.PnL
			p.PnL = &v
		}
		if p.Equity != nil {
			v := *p.Equity
			p.Equity = &v
		}
		c.Data[i] = p
	}
	return c
}

// MetricParams selects the trades a metric is computed over and carries
// metric inputs. The zero value selects everything.
type MetricParams struct {
	From            time.Time `json:"from,omitempty"`
	To              time.Time `json:"to,omitempty"`
	Symbol          string    `json:"symbol,omitempty"`
	Side            Side      `json:"side,omitempty"`
	StartingBalance float64   `json:"startingBalance,omitempty"`
	Timeframe       string    `json:"timeframe,omitempty"`
}

// Canonical renders the params as a stable string.
func (p MetricParams) Canonical() string {
	var b strings.Builder
	b.WriteString("from=")
	if !p.From.IsZero() {
		b.WriteString(p.From.Format("2006-01-02"))
	}
	b.WriteString("|to=")
	if !p.To.IsZero() {
		b.WriteString(p.To.Format("2006-01-02"))
	}
	b.WriteString("|symbol=")
	b.WriteString(strings.ToUpper(p.Symbol))
	b.WriteString("|side=")
	b.WriteString(string(p.Side))
	b.WriteString("|balance=")
	b.WriteString(strconv.FormatFloat(p.StartingBalance, 'f', -1, 64))
	b.WriteString("|tf=")
	b.WriteString(p.Timeframe)
	return b.String()
}

// Signature hashes Canonical into a short cache-key segment.
func (p MetricParams) Signature() string {
	h := fnv.New64a()
	h.Write([]byte(p.Canonical()))
	return fmt.Sprintf("%016x", h.Sum64())
}
