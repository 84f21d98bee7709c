package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// addFilterFlags registers the flags that select trades for analytics.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first open date to include (e.g. 2024-01-31)")
	cmd.Flags().String("to", "", "last open date to include")
	cmd.Flags().String("symbol", "", "only trades in this symbol")
	cmd.Flags().String("side", "", "only long or short trades")
}

// paramsFromFlags builds MetricParams from the filter flags. Dates are read
// as calendar dates in the journal's timezone.
func (a *App) paramsFromFlags(cmd *cobra.Command) (models.MetricParams, error) {
	p := models.MetricParams{StartingBalance: a.Config.Journal.StartingBalance}

	from, _ := cmd.Flags().GetString("from")
	if from != "" {
		t, err := utils.ParseLocalDate(from, a.Location)
		if err != nil {
			return p, fmt.Errorf("--from: %w", err)
		}
		p.From = utils.LocalDay(t)
	}

	to, _ := cmd.Flags().GetString("to")
	if to != "" {
		t, err := utils.ParseLocalDate(to, a.Location)
		if err != nil {
			return p, fmt.Errorf("--to: %w", err)
		}
		p.To = utils.LocalDay(t)
	}

	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return p, fmt.Errorf("--to %s is before --from %s", to, from)
	}

	p.Symbol, _ = cmd.Flags().GetString("symbol")

	if side, _ := cmd.Flags().GetString("side"); side != "" {
		s, ok := models.ParseSide(side)
		if !ok {
			return p, fmt.Errorf("--side must be long or short, got %q", side)
		}
		p.Side = s
	}

	if f := cmd.Flags().Lookup("balance"); f != nil && f.Changed {
		p.StartingBalance, _ = cmd.Flags().GetFloat64("balance")
	}
	if f := cmd.Flags().Lookup("timeframe"); f != nil {
		p.Timeframe, _ = cmd.Flags().GetString("timeframe")
	}

	return p, nil
}
