package importer

import (
	"bytes"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options controls how an export is read.
type Options struct {
	Format   Format
	Location *time.Location
	// Symbol fills in the instrument for layouts that omit it (TradingView).
	Symbol string
}

// Result is the outcome of one import. Rows that fail validation are listed
// in Skipped and never appear in Trades.
type Result struct {
	Format  Format
	Trades  []models.TradeRecord
	Skipped []*errors.ParseError
}

// Importer parses broker exports.
type Importer struct {
	logger zerolog.Logger
}

// New creates an importer.
func New(logger zerolog.Logger) *Importer {
	return &Importer{logger: logging.WithComponent(logger, "importer")}
}

// Import reads a whole CSV export. A structurally broken file fails as a
// whole; a malformed row is skipped and reported.
func (im *Importer) Import(r io.Reader, opts Options) (*Result, error) {
	if opts.Format == "" {
		opts.Format = FormatGeneric
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading export")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	res := &Result{Format: opts.Format, Trades: []models.TradeRecord{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return res, nil
	}

	raws, err := decode(data, opts)
	if err != nil {
		return nil, err
	}

	for _, raw := range raws {
		t, err := ParseTradeRecord(raw, opts.Location)
		if err != nil {
			pe, ok := err.(*errors.ParseError)
			if !ok {
				pe = errors.NewParseError(raw.Row, "", "", err)
			}
			im.logger.Debug().Err(pe).Msg("Skipping malformed row")
			res.Skipped = append(res.Skipped, pe)
			continue
		}
		res.Trades = append(res.Trades, t)
	}

	return res, nil
}

func decode(data []byte, opts Options) ([]RawTrade, error) {
	switch opts.Format {
	case FormatGeneric:
		var rows []*genericRow
		if err := gocsv.Unmarshal(bytes.NewReader(data), &rows); err != nil {
			return nil, errors.Wrap(err, "decoding generic csv")
		}
		raws := make([]RawTrade, 0, len(rows))
		for i, r := range rows {
			raws = append(raws, r.raw(i+2))
		}
		return raws, nil

	case FormatTradovate:
		var rows []*tradovateRow
		if err := gocsv.Unmarshal(bytes.NewReader(data), &rows); err != nil {
			return nil, errors.Wrap(err, "decoding tradovate csv")
		}
		raws := make([]RawTrade, 0, len(rows))
		for i, r := range rows {
			raws = append(raws, r.raw(i+2, opts.Location))
		}
		return raws, nil

	case FormatTradingView:
		var rows []*tradingViewRow
		if err := gocsv.Unmarshal(bytes.NewReader(data), &rows); err != nil {
			return nil, errors.Wrap(err, "decoding tradingview csv")
		}
		return pairTradingView(rows, opts.Symbol), nil

	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedFormat, "%q", opts.Format)
	}
}
