package analytics

import (
	"slices"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// Summary holds aggregate statistics for a set of trades.
type Summary struct {
	TotalTrades  int      `json:"totalTrades"`
	Wins         int      `json:"wins"`
	Losses       int      `json:"losses"`
	Breakeven    int      `json:"breakeven"`
	WinRate      float64  `json:"winRate"`
	NetPnL       float64  `json:"netPnl"`
	GrossProfit  float64  `json:"grossProfit"`
	GrossLoss    float64  `json:"grossLoss"`
	ProfitFactor float64  `json:"profitFactor"`
	AverageWin   float64  `json:"averageWin"`
	AverageLoss  float64  `json:"averageLoss"`
	Expectancy   float64  `json:"expectancy"`
	LargestWin   float64  `json:"largestWin"`
	LargestLoss  float64  `json:"largestLoss"`
	AverageR     *float64 `json:"averageR"`
	Commission   float64  `json:"commission"`
}

// Clone returns a copy that shares no pointers with s.
func (s Summary) Clone() Summary {
	if s.AverageR != nil {
		s.AverageR = ptr(*s.AverageR)
	}
	return s
}

// Summarize computes Summary over trades. GrossLoss and AverageLoss are
// negative; ProfitFactor is 0 when there are no losses. Trades whose net P&L
// is not a finite number are left out.
func Summarize(trades []models.TradeRecord) Summary {
	trades = slices.DeleteFunc(slices.Clone(trades), func(t models.TradeRecord) bool {
		return !finite(t.NetPnL)
	})
	s := Summary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	var net, profit, loss, commission decimal.Decimal
	for _, t := range trades {
		pnl := amount(t.NetPnL)
		net = net.Add(pnl)
		commission = commission.Add(amount(t.Commission))

		switch {
		case t.NetPnL > 0:
			s.Wins++
			profit = profit.Add(pnl)
			if t.NetPnL > s.LargestWin {
				s.LargestWin = t.NetPnL
			}
		case t.NetPnL < 0:
			s.Losses++
			loss = loss.Add(pnl)
			if t.NetPnL < s.LargestLoss {
				s.LargestLoss = t.NetPnL
			}
		default:
			s.Breakeven++
		}
	}

	s.NetPnL = net.InexactFloat64()
	s.GrossProfit = profit.InexactFloat64()
	s.GrossLoss = loss.InexactFloat64()
	s.Commission = commission.InexactFloat64()
	s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	s.Expectancy = net.Div(decimal.NewFromInt(int64(s.TotalTrades))).InexactFloat64()

	if s.Wins > 0 {
		s.AverageWin = profit.Div(decimal.NewFromInt(int64(s.Wins))).InexactFloat64()
	}
	if s.Losses > 0 {
		s.AverageLoss = loss.Div(decimal.NewFromInt(int64(s.Losses))).InexactFloat64()
		s.ProfitFactor = profit.Div(loss.Neg()).InexactFloat64()
	}

	s.AverageR = AverageR(ComputeRMultiples(trades))
	return s
}
