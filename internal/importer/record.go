// Package importer turns broker CSV exports into validated trade records.
package importer

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// RawTrade is one broker row reduced to the journal's fields, still as text.
type RawTrade struct {
	Row            int
	ID             string
	Symbol         string
	Side           string
	OpenDate       string
	CloseDate      string
	ExpirationDate string
	EntryPrice     string
	ExitPrice      string
	StopLoss       string
	ProfitTarget   string
	NetPnL         string
	NetROI         string
	Quantity       string
	Commission     string
	Notes          string
	Tags           string
}

// ParseTradeRecord validates raw and builds a TradeRecord. Symbol, open date
// and net P&L are required; every other field is optional. Dates are read
// as local calendar dates in loc. A missing ID is replaced by a ULID.
func ParseTradeRecord(raw RawTrade, loc *time.Location) (models.TradeRecord, error) {
	var t models.TradeRecord

	t.Symbol = strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if t.Symbol == "" {
		return t, errors.NewParseError(raw.Row, "symbol", raw.Symbol, errors.ErrMissingField)
	}

	if strings.TrimSpace(raw.OpenDate) == "" {
		return t, errors.NewParseError(raw.Row, "open_date", raw.OpenDate, errors.ErrMissingField)
	}
	open, err := utils.ParseLocalDate(raw.OpenDate, loc)
	if err != nil {
		return t, errors.NewParseError(raw.Row, "open_date", raw.OpenDate, errors.ErrInvalidDate)
	}
	t.OpenDate = open

	if strings.TrimSpace(raw.NetPnL) == "" {
		return t, errors.NewParseError(raw.Row, "net_pnl", raw.NetPnL, errors.ErrMissingField)
	}
	pnl, err := ParseAmount(raw.NetPnL)
	if err != nil {
		return t, errors.NewParseError(raw.Row, "net_pnl", raw.NetPnL, errors.ErrInvalidNumber)
	}
	var ok bool
	if t.NetPnL, ok = finite(pnl); !ok {
		return t, errors.NewParseError(raw.Row, "net_pnl", raw.NetPnL, errors.ErrInvalidNumber)
	}

	t.Side = models.SideLong
	if strings.TrimSpace(raw.Side) != "" {
		side, ok := models.ParseSide(raw.Side)
		if !ok {
			return t, errors.NewParseError(raw.Row, "side", raw.Side, errors.ErrInvalidTrade)
		}
		t.Side = side
	}

	if strings.TrimSpace(raw.CloseDate) != "" {
		closed, err := utils.ParseLocalDate(raw.CloseDate, loc)
		if err != nil {
			return t, errors.NewParseError(raw.Row, "close_date", raw.CloseDate, errors.ErrInvalidDate)
		}
		if closed.Before(open) {
			return t, errors.NewParseError(raw.Row, "close_date", raw.CloseDate,
				errors.Wrap(errors.ErrInvalidTrade, "closed before it was opened"))
		}
		t.CloseDate = &closed
	}

	if strings.TrimSpace(raw.ExpirationDate) != "" {
		exp, err := utils.ParseLocalDate(raw.ExpirationDate, loc)
		if err != nil {
			return t, errors.NewParseError(raw.Row, "expiration_date", raw.ExpirationDate, errors.ErrInvalidDate)
		}
		t.ExpirationDate = &exp
	}

	numbers := []struct {
		field string
		value string
		dst   *float64
	}{
		{"entry_price", raw.EntryPrice, &t.EntryPrice},
		{"exit_price", raw.ExitPrice, &t.ExitPrice},
		{"net_roi", raw.NetROI, &t.NetROI},
		{"quantity", raw.Quantity, &t.Quantity},
		{"commission", raw.Commission, &t.Commission},
	}
	for _, n := range numbers {
		if strings.TrimSpace(n.value) == "" {
			continue
		}
		d, err := ParseAmount(n.value)
		if err != nil {
			return t, errors.NewParseError(raw.Row, n.field, n.value, errors.ErrInvalidNumber)
		}
		if *n.dst, ok = finite(d); !ok {
			return t, errors.NewParseError(raw.Row, n.field, n.value, errors.ErrInvalidNumber)
		}
	}
	if t.Quantity < 0 {
		t.Quantity = -t.Quantity
	}

	optional := []struct {
		field string
		value string
		dst   **float64
	}{
		{"stop_loss", raw.StopLoss, &t.StopLoss},
		{"profit_target", raw.ProfitTarget, &t.ProfitTarget},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.value) == "" {
			continue
		}
		d, err := ParseAmount(o.value)
		if err != nil {
			return t, errors.NewParseError(raw.Row, o.field, o.value, errors.ErrInvalidNumber)
		}
		f, ok := finite(d)
		if !ok {
			return t, errors.NewParseError(raw.Row, o.field, o.value, errors.ErrInvalidNumber)
		}
		*o.dst = &f
	}

	if t.NetROI == 0 && t.EntryPrice != 0 && t.Quantity != 0 {
		cost := decimal.NewFromFloat(t.EntryPrice).Mul(decimal.NewFromFloat(t.Quantity)).Abs()
		t.NetROI = decimal.NewFromFloat(t.NetPnL).Div(cost).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
	}

	t.ID = strings.TrimSpace(raw.ID)
	if t.ID == "" {
		t.ID = NewID()
	}
	t.Notes = strings.TrimSpace(raw.Notes)
	t.Tags = splitTags(raw.Tags)

	return t, nil
}

// ParseAmount parses broker money/number text: "$1,234.50", "(12.00)",
// "-$3", "12%" and plain decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	// "$(12.50)" is Tradovate's spelling of a loss
	if strings.HasPrefix(s, "$(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[2 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// finite converts d to a float64, reporting false when it overflows.
func finite(d decimal.Decimal) (float64, bool) {
	f := d.InexactFloat64()
	return f, !math.IsInf(f, 0) && !math.IsNaN(f)
}

func splitTags(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' || r == '|' }) {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
