package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trade-journal/internal/analytics"
	"trade-journal/internal/models"
)

var metricDescriptions = map[string]string{
	analytics.MetricEquityCurve:      "Account equity after each trade",
	analytics.MetricCumulativePnL:    "Running net P&L",
	analytics.MetricDailyPnL:         "Net P&L per calendar day",
	analytics.MetricRMultiple:        "Realized R of each trade with a stop",
	analytics.MetricDayOfWeek:        "Count and P&L by weekday",
	analytics.MetricHourOfDay:        "Count and P&L by hour opened",
	analytics.MetricDaysToExpiration: "Count and P&L by days held to expiration",
	analytics.MetricSymbolPnL:        "Net P&L per symbol",
	analytics.MetricWinRate:          "Rolling win rate",
}

// addAnalyticsCommands adds the metric and summary commands.
func addAnalyticsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newMetricCmd(app))
	rootCmd.AddCommand(newMetricsCmd(app))
	rootCmd.AddCommand(newSummaryCmd(app))
}

func newMetricCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metric <name>",
		Short: "Compute a metric series",
		Long: `Compute a metric series over the account's trades.

Run 'tj metrics' for the list of metric names.

Examples:
  tj metric equity-curve --balance 25000
  tj metric day-of-week --symbol ES --from 2024-01-01
  tj metric r-multiple --side short --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			params, err := app.paramsFromFlags(cmd)
			if err != nil {
				return err
			}

			series, err := app.Service.GetMetric(args[0], params)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(series)
			}
			renderSeries(output, series)
			return nil
		},
	}

	addFilterFlags(cmd)
	cmd.Flags().Float64("balance", 0, "starting balance for the equity curve (default from config)")
	cmd.Flags().String("timeframe", "", "timeframe label passed through to the series")

	return cmd
}

func renderSeries(output *Output, series models.MetricSeries) {
	output.Bold(series.Title)
	if series.Len() == 0 {
		output.Info("No data.")
		return
	}

	hasPnL, hasEquity, hasCount := false, false, false
	for _, p := range series.Data {
		hasPnL = hasPnL || p.PnL != nil
		hasEquity = hasEquity || p.Equity != nil
		hasCount = hasCount || p.Count > 0
	}

	headers := []string{"Date", "Value"}
	if hasPnL {
		headers = append(headers, "P&L")
	}
	if hasEquity {
		headers = append(headers, "Equity")
	}
	if hasCount {
		headers = append(headers, "Trades")
	}

	table := NewTable(output, headers...)
	for _, p := range series.Data {
		row := []string{p.Date, fmt.Sprintf("%.2f", p.Value)}
		if hasPnL {
			row = append(row, optionalPnL(output, p.PnL))
		}
		if hasEquity {
			row = append(row, optionalMoney(output, p.Equity))
		}
		if hasCount {
			row = append(row, fmt.Sprintf("%d", p.Count))
		}
		table.AddRow(row...)
	}
	table.Render()
}

func optionalPnL(output *Output, v *float64) string {
	if v == nil {
		return "-"
	}
	return output.FormatPnL(*v)
}

func optionalMoney(output *Output, v *float64) string {
	if v == nil {
		return "-"
	}
	return output.Money(*v)
}

func newMetricsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List available metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			names := app.Service.Metrics()
			if output.IsJSON() {
				return output.JSON(names)
			}

			table := NewTable(output, "Metric", "Description")
			for _, name := range names {
				table.AddRow(name, metricDescriptions[name])
			}
			table.Render()
			return nil
		},
	}
}

func newSummaryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show performance statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			params, err := app.paramsFromFlags(cmd)
			if err != nil {
				return err
			}

			s, err := app.Service.Summary(params)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(s)
			}

			title := "Performance Summary - " + app.Store.AccountID()
			if filters := describeParams(params); filters != "" {
				title += " (" + filters + ")"
			}
			output.Bold(title)
			output.Println()

			if s.TotalTrades == 0 {
				output.Info("No trades found.")
				return nil
			}

			output.Printf("  Total Trades:     %d\n", s.TotalTrades)
			output.Printf("  Wins / Losses:    %d / %d (%d breakeven)\n", s.Wins, s.Losses, s.Breakeven)
			output.Printf("  Win Rate:         %.1f%%\n", s.WinRate)
			output.Println()
			output.Printf("  Net P&L:          %s\n", output.FormatPnL(s.NetPnL))
			output.Printf("  Gross Profit:     %s\n", output.Money(s.GrossProfit))
			output.Printf("  Gross Loss:       %s\n", output.Money(s.GrossLoss))
			output.Printf("  Commission:       %s\n", output.Money(s.Commission))
			output.Printf("  Profit Factor:    %.2f\n", s.ProfitFactor)
			output.Println()
			output.Printf("  Average Win:      %s\n", output.FormatPnL(s.AverageWin))
			output.Printf("  Average Loss:     %s\n", output.FormatPnL(s.AverageLoss))
			output.Printf("  Largest Win:      %s\n", output.FormatPnL(s.LargestWin))
			output.Printf("  Largest Loss:     %s\n", output.FormatPnL(s.LargestLoss))
			output.Printf("  Expectancy:       %s\n", output.FormatPnL(s.Expectancy))
			output.Printf("  Average R:        %s\n", output.FormatR(s.AverageR))
			return nil
		},
	}

	addFilterFlags(cmd)
	return cmd
}

func describeParams(p models.MetricParams) string {
	var parts []string
	if p.Symbol != "" {
		parts = append(parts, strings.ToUpper(p.Symbol))
	}
	if p.Side != "" {
		parts = append(parts, string(p.Side))
	}
	if !p.From.IsZero() {
		parts = append(parts, "from "+p.From.Format("2006-01-02"))
	}
	if !p.To.IsZero() {
		parts = append(parts, "to "+p.To.Format("2006-01-02"))
	}
	return strings.Join(parts, ", ")
}
