package models

import "time"

// TradeRecord is a single normalized trade. Dates carry local calendar
// semantics: they are built in the journal's location and never shifted
// through UTC.
type TradeRecord struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Side   Side   `json:"side"`

	OpenDate       time.Time  `json:"openDate"`
	CloseDate      *time.Time `json:"closeDate,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`

	EntryPrice   float64  `json:"entryPrice"`
	ExitPrice    float64  `json:"exitPrice"`
	StopLoss     *float64 `json:"stopLoss,omitempty"`
	ProfitTarget *float64 `json:"profitTarget,omitempty"`

	NetPnL     float64 `json:"netPnl"`
	NetROI     float64 `json:"netRoi"`
	Quantity   float64 `json:"quantity"`
	Commission float64 `json:"commission,omitempty"`

	Notes string   `json:"notes,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// IsClosed reports whether the trade has a close date.
func (t TradeRecord) IsClosed() bool {
	return t.CloseDate != nil
}

// HoldDuration returns the time between open and close, zero for open trades.
func (t TradeRecord) HoldDuration() time.Duration {
	if t.CloseDate == nil {
		return 0
	}
	return t.CloseDate.Sub(t.OpenDate)
}

// Consistent reports whether the sign of NetPnL agrees with the side and the
// price move. Trades without both prices, or with a flat move, are treated as
// consistent. Importers do not reject inconsistent trades.
func (t TradeRecord) Consistent() bool {
	if t.EntryPrice == 0 || t.ExitPrice == 0 || t.NetPnL == 0 {
		return true
	}
	move := (t.ExitPrice - t.EntryPrice) * t.Side.Sign()
	if move == 0 {
		return true
	}
	return (move > 0) == (t.NetPnL > 0)
}

// Clone returns a deep copy so callers cannot alias store-owned pointers.
func (t TradeRecord) Clone() TradeRecord {
	c := t
	if t.CloseDate != nil {
		d := *t.CloseDate
		c.CloseDate = &d
	}
	if t.ExpirationDate != nil {
		d := *t.ExpirationDate
		c.ExpirationDate = &d
	}
	if t.StopLoss != nil {
		v := *t.StopLoss
		c.StopLoss = &v
	}
	if t.ProfitTarget != nil {
		v := *t.ProfitTarget
		c.ProfitTarget = &v
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return c
}

// JournalNote is a free-form note attached to a trading day.
type JournalNote struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
