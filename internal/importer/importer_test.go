package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func newTestImporter() *Importer {
	return New(zerolog.Nop())
}

func TestImport_Generic(t *testing.T) {
	csv := "\xEF\xBB\xBF" + `id,symbol,side,open_date,close_date,entry_price,exit_price,stop_loss,profit_target,net_pnl,quantity,tags
t1,aapl,long,2024-01-02 09:31:00,2024-01-02 10:15:00,100,102,99,104,200,100,breakout;morning
t2,MSFT,short,2024-01-03,,400,395,405,,"$1,250.00",2,
t3,TSLA,long,,2024-01-04,200,210,,,50,1,
t4,NVDA,long,2024-01-05,2024-01-04,500,510,,,100,1,
t5,AMD,sideways,2024-01-05,,100,101,,,1,1,
t6,META,long,2024-01-06,,300,310,,,,1,
`
	res, err := newTestImporter().Import(strings.NewReader(csv), Options{Format: FormatGeneric, Location: time.UTC})
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	require.Len(t, res.Skipped, 4)

	first := res.Trades[0]
	assert.Equal(t, "t1", first.ID)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, models.SideLong, first.Side)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 31, 0, 0, time.UTC), first.OpenDate)
	require.NotNil(t, first.CloseDate)
	require.NotNil(t, first.StopLoss)
	assert.Equal(t, 99.0, *first.StopLoss)
	require.NotNil(t, first.ProfitTarget)
	assert.Equal(t, 104.0, *first.ProfitTarget)
	assert.Equal(t, []string{"breakout", "morning"}, first.Tags)
	// ROI derived from cost basis when the export has none
	assert.InDelta(t, 2.0, first.NetROI, 1e-9)

	second := res.Trades[1]
	assert.Equal(t, models.SideShort, second.Side)
	assert.Equal(t, 1250.0, second.NetPnL)
	assert.Nil(t, second.CloseDate)
	assert.Nil(t, second.ProfitTarget)

	// rows are reported with their 1-based line numbers
	assert.Equal(t, 4, res.Skipped[0].Row)
	assert.True(t, errors.Is(res.Skipped[0], errors.ErrMissingField))
	assert.Equal(t, "close_date", res.Skipped[1].Field)
	assert.True(t, errors.Is(res.Skipped[1], errors.ErrInvalidTrade))
	assert.Equal(t, "side", res.Skipped[2].Field)
	assert.Equal(t, "net_pnl", res.Skipped[3].Field)
}

func TestImport_Tradovate(t *testing.T) {
	csv := `symbol,_priceFormat,_priceFormatType,_tickSize,buyFillId,sellFillId,qty,buyPrice,sellPrice,pnl,boughtTimestamp,soldTimestamp,duration
MESH4,-2,0,0.25,101,102,1,4780.25,4790.25,$50.00,01/02/2024 09:30:15,01/02/2024 09:45:00,14min 45sec
MESH4,-2,0,0.25,104,103,2,4795.00,4800.00,$(12.50),01/02/2024 11:05:00,01/02/2024 10:50:00,15min
`
	res, err := newTestImporter().Import(strings.NewReader(csv), Options{Format: FormatTradovate, Location: time.UTC})
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.Len(t, res.Trades, 2)

	long := res.Trades[0]
	assert.Equal(t, "101-102", long.ID)
	assert.Equal(t, models.SideLong, long.Side)
	assert.Equal(t, 4780.25, long.EntryPrice)
	assert.Equal(t, 50.0, long.NetPnL)

	// sold before bought: a short opened by the sell fill
	short := res.Trades[1]
	assert.Equal(t, models.SideShort, short.Side)
	assert.Equal(t, 4800.0, short.EntryPrice)
	assert.Equal(t, 4795.0, short.ExitPrice)
	assert.Equal(t, -12.5, short.NetPnL)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 50, 0, 0, time.UTC), short.OpenDate)
	assert.Equal(t, 2.0, short.Quantity)
}

func TestImport_TradingView(t *testing.T) {
	csv := `Trade #,Type,Signal,Date/Time,Price USD,Contracts,Profit USD,Profit %,Cum. Profit USD
1,Entry Long,EMA Cross,2024-01-02 09:30,100.5,10,,,
1,Exit Long,Stop,2024-01-02 10:00,99.5,10,-10,-0.99,-10
2,Entry Short,Breakdown,2024-01-03 09:30,101,5,,,
2,Exit Short,Target,2024-01-03 11:00,99,5,10,1.98,0
`
	res, err := newTestImporter().Import(strings.NewReader(csv), Options{Format: FormatTradingView, Location: time.UTC, Symbol: "spy"})
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.Len(t, res.Trades, 2)

	assert.Equal(t, "tv-1", res.Trades[0].ID)
	assert.Equal(t, "SPY", res.Trades[0].Symbol)
	assert.Equal(t, models.SideLong, res.Trades[0].Side)
	assert.Equal(t, -10.0, res.Trades[0].NetPnL)
	assert.Equal(t, "EMA Cross", res.Trades[0].Notes)

	assert.Equal(t, models.SideShort, res.Trades[1].Side)
	assert.Equal(t, 101.0, res.Trades[1].EntryPrice)
	assert.Equal(t, 99.0, res.Trades[1].ExitPrice)
	assert.Equal(t, 1.98, res.Trades[1].NetROI)
}

func TestImport_EmptyInput(t *testing.T) {
	res, err := newTestImporter().Import(strings.NewReader("  \n"), Options{})
	require.NoError(t, err)
	assert.NotNil(t, res.Trades)
	assert.Empty(t, res.Trades)
}

func TestParseTradeRecord_GeneratesID(t *testing.T) {
	raw := RawTrade{Row: 2, Symbol: "es", OpenDate: "2024-01-01", NetPnL: "100"}

	a, err := ParseTradeRecord(raw, time.UTC)
	require.NoError(t, err)
	b, err := ParseTradeRecord(raw, time.UTC)
	require.NoError(t, err)

	assert.Len(t, a.ID, 26)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, models.SideLong, a.Side)
}

func TestParseTradeRecord_InvalidDate(t *testing.T) {
	_, err := ParseTradeRecord(RawTrade{Row: 9, Symbol: "ES", OpenDate: "not a date", NetPnL: "1"}, time.UTC)
	require.Error(t, err)

	var pe *errors.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 9, pe.Row)
	assert.Equal(t, "open_date", pe.Field)
	assert.True(t, errors.Is(err, errors.ErrInvalidDate))
}

func TestParseTradeRecord_RejectsNonFiniteNumbers(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawTrade
		field string
	}{
		{"net pnl overflow", RawTrade{Symbol: "ES", OpenDate: "2024-01-01", NetPnL: "1e400"}, "net_pnl"},
		{"negative entry overflow", RawTrade{Symbol: "ES", OpenDate: "2024-01-01", NetPnL: "1", EntryPrice: "-1e400"}, "entry_price"},
		{"stop overflow", RawTrade{Symbol: "ES", OpenDate: "2024-01-01", NetPnL: "1", StopLoss: "1e400"}, "stop_loss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTradeRecord(tt.raw, time.UTC)
			require.Error(t, err)

			var pe *errors.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.field, pe.Field)
			assert.True(t, errors.Is(err, errors.ErrInvalidNumber))
		})
	}
}

func TestImport_SkipsOverflowingAmount(t *testing.T) {
	csv := "symbol,open_date,net_pnl\nES,2024-01-01,1e400\nNQ,2024-01-02,25\n"

	res, err := newTestImporter().Import(strings.NewReader(csv), Options{Format: FormatGeneric, Location: time.UTC})
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, "NQ", res.Trades[0].Symbol)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "net_pnl", res.Skipped[0].Field)
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"100":        "100",
		"$1,234.50":  "1234.5",
		"(12.00)":    "-12",
		"$(12.50)":   "-12.5",
		"-$3":        "-3",
		"12.5%":      "12.5",
		" 7 ":        "7",
	}
	for in, want := range tests {
		d, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}

	_, err := ParseAmount("n/a")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Tradovate")
	require.NoError(t, err)
	assert.Equal(t, FormatTradovate, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatGeneric, f)

	_, err = ParseFormat("xlsx")
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))
}
