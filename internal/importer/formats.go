package importer

import (
	"strings"
	"time"

	"trade-journal/internal/errors"
	"trade-journal/pkg/utils"
)

// Format names a supported broker export layout.
type Format string

const (
	FormatGeneric     Format = "generic"
	FormatTradovate   Format = "tradovate"
	FormatTradingView Format = "tradingview"
)

// Formats lists the supported layouts.
var Formats = []Format{FormatGeneric, FormatTradovate, FormatTradingView}

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatGeneric, FormatTradovate, FormatTradingView:
		return f, nil
	case "":
		return FormatGeneric, nil
	default:
		return "", errors.Wrapf(errors.ErrUnsupportedFormat, "%q", s)
	}
}

// genericRow is the journal's own export layout, one closed trade per row.
type genericRow struct {
	ID             string `csv:"id"`
	Symbol         string `csv:"symbol"`
	Side           string `csv:"side"`
	OpenDate       string `csv:"open_date"`
	CloseDate      string `csv:"close_date"`
	ExpirationDate string `csv:"expiration_date"`
	EntryPrice     string `csv:"entry_price"`
	ExitPrice      string `csv:"exit_price"`
	StopLoss       string `csv:"stop_loss"`
	ProfitTarget   string `csv:"profit_target"`
	NetPnL         string `csv:"net_pnl"`
	NetROI         string `csv:"net_roi"`
	Quantity       string `csv:"quantity"`
	Commission     string `csv:"commission"`
	Notes          string `csv:"notes"`
	Tags           string `csv:"tags"`
}

func (r *genericRow) raw(row int) RawTrade {
	return RawTrade{
		Row:            row,
		ID:             r.ID,
		Symbol:         r.Symbol,
		Side:           r.Side,
		OpenDate:       r.OpenDate,
		CloseDate:      r.CloseDate,
		ExpirationDate: r.ExpirationDate,
		EntryPrice:     r.EntryPrice,
		ExitPrice:      r.ExitPrice,
		StopLoss:       r.StopLoss,
		ProfitTarget:   r.ProfitTarget,
		NetPnL:         r.NetPnL,
		NetROI:         r.NetROI,
		Quantity:       r.Quantity,
		Commission:     r.Commission,
		Notes:          r.Notes,
		Tags:           r.Tags,
	}
}

// tradovateRow is a row of the Tradovate "Performance" report: one matched
// buy/sell fill pair per row.
type tradovateRow struct {
	Symbol          string `csv:"symbol"`
	BuyFillID       string `csv:"buyFillId"`
	SellFillID      string `csv:"sellFillId"`
	Qty             string `csv:"qty"`
	BuyPrice        string `csv:"buyPrice"`
	SellPrice       string `csv:"sellPrice"`
	PnL             string `csv:"pnl"`
	BoughtTimestamp string `csv:"boughtTimestamp"`
	SoldTimestamp   string `csv:"soldTimestamp"`
}

// raw maps the fill pair to a trade; whichever fill came first opened it.
func (r *tradovateRow) raw(row int, loc *time.Location) RawTrade {
	t := RawTrade{
		Row:        row,
		Symbol:     r.Symbol,
		Side:       "long",
		OpenDate:   r.BoughtTimestamp,
		CloseDate:  r.SoldTimestamp,
		EntryPrice: r.BuyPrice,
		ExitPrice:  r.SellPrice,
		NetPnL:     r.PnL,
		Quantity:   r.Qty,
	}
	if r.BuyFillID != "" && r.SellFillID != "" {
		t.ID = r.BuyFillID + "-" + r.SellFillID
	}

	bought, errB := utils.ParseLocalDate(r.BoughtTimestamp, loc)
	sold, errS := utils.ParseLocalDate(r.SoldTimestamp, loc)
	if errB == nil && errS == nil && sold.Before(bought) {
		t.Side = "short"
		t.OpenDate, t.CloseDate = r.SoldTimestamp, r.BoughtTimestamp
		t.EntryPrice, t.ExitPrice = r.SellPrice, r.BuyPrice
	}
	return t
}

// tradingViewRow is a row of the TradingView strategy tester "List of
// trades" export. Every trade spans an entry row and an exit row that share
// the trade number.
type tradingViewRow struct {
	TradeNo   string `csv:"Trade #"`
	Type      string `csv:"Type"`
	Signal    string `csv:"Signal"`
	DateTime  string `csv:"Date/Time"`
	Price     string `csv:"Price USD"`
	Contracts string `csv:"Contracts"`
	Profit    string `csv:"Profit USD"`
	ProfitPct string `csv:"Profit %"`
}

// pairTradingView merges entry/exit rows by trade number, keeping the order
// in which trade numbers first appear. Unpaired entries (still open) keep
// the entry row only.
func pairTradingView(rows []*tradingViewRow, symbol string) []RawTrade {
	byNo := make(map[string]*RawTrade)
	var order []string

	for i, r := range rows {
		no := strings.TrimSpace(r.TradeNo)
		t, ok := byNo[no]
		if !ok {
			t = &RawTrade{Row: i + 2, Symbol: symbol}
			if no != "" {
				t.ID = "tv-" + no
			}
			byNo[no] = t
			order = append(order, no)
		}

		kind := strings.ToLower(strings.TrimSpace(r.Type))
		if strings.HasSuffix(kind, "short") {
			t.Side = "short"
		} else if strings.HasSuffix(kind, "long") {
			t.Side = "long"
		}
		switch {
		case strings.HasPrefix(kind, "entry"):
			t.OpenDate = r.DateTime
			t.EntryPrice = r.Price
			t.Quantity = r.Contracts
			t.Notes = strings.TrimSpace(r.Signal)
		case strings.HasPrefix(kind, "exit"):
			t.CloseDate = r.DateTime
			t.ExitPrice = r.Price
		}
		if strings.TrimSpace(r.Profit) != "" {
			t.NetPnL = r.Profit
		}
		if strings.TrimSpace(r.ProfitPct) != "" {
			t.NetROI = r.ProfitPct
		}
	}

	out := make([]RawTrade, 0, len(order))
	for _, no := range order {
		out = append(out, *byNo[no])
	}
	return out
}
