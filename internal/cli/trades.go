package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/analytics"
	"trade-journal/internal/importer"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// addTradeCommands adds the commands that load and inspect trades.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newClearCmd(app))
	rootCmd.AddCommand(newAccountsCmd(app))
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a broker CSV export",
		Long: `Import trades from a broker CSV export.

By default the import replaces every trade in the account. Use --append to
merge the file into the existing trades; rows whose ID already exists are
replaced.

Supported formats: generic, tradovate, tradingview.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			formatName, _ := cmd.Flags().GetString("format")
			if formatName == "" {
				formatName = app.Config.Journal.DefaultFormat
			}
			format, err := importer.ParseFormat(formatName)
			if err != nil {
				return err
			}
			symbol, _ := cmd.Flags().GetString("symbol")
			appendMode, _ := cmd.Flags().GetBool("append")

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := app.Importer.Import(f, importer.Options{
				Format:   format,
				Location: app.Location,
				Symbol:   symbol,
			})
			if err != nil {
				return err
			}

			trades := res.Trades
			if appendMode {
				trades = mergeTrades(app.Store.GetAllTrades(), res.Trades)
			}
			app.Store.ReplaceTrades(trades)
			logging.LogImport(app.Logger, filepath.Base(args[0]), string(res.Format), len(res.Trades), len(res.Skipped))

			if output.IsJSON() {
				skipped := make([]string, len(res.Skipped))
				for i, pe := range res.Skipped {
					skipped[i] = pe.Error()
				}
				return output.JSON(map[string]interface{}{
					"account":  app.Store.AccountID(),
					"format":   res.Format,
					"imported": len(res.Trades),
					"total":    app.Store.Len(),
					"skipped":  skipped,
				})
			}

			output.Success("✓ Imported %d trades from %s (%s)", len(res.Trades), filepath.Base(args[0]), res.Format)
			output.Printf("  Account: %s, %d trades total\n", app.Store.AccountID(), app.Store.Len())
			if len(res.Skipped) > 0 {
				output.Println()
				output.Warning("Skipped %d rows:", len(res.Skipped))
				for _, pe := range res.Skipped {
					output.Printf("  %s\n", pe.Error())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "", "export format: generic, tradovate, tradingview (default from config)")
	cmd.Flags().String("symbol", "", "symbol for formats that omit it (tradingview)")
	cmd.Flags().Bool("append", false, "merge into existing trades instead of replacing them")

	return cmd
}

// mergeTrades overlays incoming on existing by trade ID, keeping existing
// order and appending new IDs in import order.
func mergeTrades(existing, incoming []models.TradeRecord) []models.TradeRecord {
	index := make(map[string]int, len(existing))
	out := make([]models.TradeRecord, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	for i, t := range out {
		index[t.ID] = i
	}
	for _, t := range incoming {
		if i, ok := index[t.ID]; ok {
			out[i] = t
			continue
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}

func newTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List imported trades",
		Long:  "List the account's trades in chronological order with their R-multiples.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			params, err := app.paramsFromFlags(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			trades := analytics.Filter(app.Store.GetAllTrades(), params)
			sort.SliceStable(trades, func(i, j int) bool {
				return trades[i].OpenDate.Before(trades[j].OpenDate)
			})
			if limit > 0 && len(trades) > limit {
				trades = trades[len(trades)-limit:]
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades found.")
				output.Dim("Tip: load a broker export with 'tj import <file>'.")
				return nil
			}

			table := NewTable(output, "ID", "Opened", "Symbol", "Side", "Qty", "Entry", "Exit", "Held", "P&L", "R")
			for _, t := range trades {
				r := analytics.ComputeRMultiple(t)
				table.AddRow(
					truncate(t.ID, 12),
					formatDateTime(t.OpenDate),
					t.Symbol,
					string(t.Side),
					utils.FormatQuantity(t.Quantity),
					fmt.Sprintf("%.2f", t.EntryPrice),
					fmt.Sprintf("%.2f", t.ExitPrice),
					formatHeld(t),
					output.FormatPnL(t.NetPnL),
					output.FormatR(r.Realized),
				)
			}
			table.Render()
			output.Println()
			output.Dim("%d trades", len(trades))
			return nil
		},
	}

	addFilterFlags(cmd)
	cmd.Flags().IntP("limit", "n", 0, "show only the most recent n trades")

	return cmd
}

func newClearCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every trade in the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				output.Warning("This deletes all %d trades in account %q. Re-run with --yes to confirm.", app.Store.Len(), app.Store.AccountID())
				return nil
			}

			n := app.Store.Len()
			app.Store.ClearData()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"account": app.Store.AccountID(), "deleted": n})
			}
			output.Success("✓ Deleted %d trades from %s", n, app.Store.AccountID())
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "confirm deletion")
	return cmd
}

func newAccountsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts stored in the journal database",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if app.Mirror == nil {
				output.Warning("Storage mirror is disabled; only the current session's account exists.")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			counts, err := app.Mirror.AccountCounts(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(counts)
			}

			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)

			table := NewTable(output, "Account", "Trades", "")
			for _, name := range names {
				marker := ""
				if name == app.Store.AccountID() {
					marker = output.DimText("(current)")
				}
				table.AddRow(name, fmt.Sprintf("%d", counts[name]), marker)
			}
			table.Render()
			return nil
		},
	}
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func formatHeld(t models.TradeRecord) string {
	if !t.IsClosed() {
		return "open"
	}
	d := t.HoldDuration().Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
	return strings.TrimSuffix(d.String(), "0s")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
