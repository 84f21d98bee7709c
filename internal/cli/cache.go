package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/scheduler"
)

// addCacheCommands adds analytics cache maintenance commands.
func addCacheCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Analytics cache maintenance",
		Long:  "Inspect and reset the analytics cache for the current account.",
	}

	cmd.AddCommand(newCacheStatsCmd(app))
	cmd.AddCommand(newCacheClearCmd(app))

	rootCmd.AddCommand(cmd)
}

func newCacheStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache occupancy and hit counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			params, err := app.paramsFromFlags(cmd)
			if err != nil {
				return err
			}

			warm, _ := cmd.Flags().GetBool("warm")
			if warm {
				for _, name := range app.Service.Metrics() {
					if _, err := app.Service.GetMetric(name, params); err != nil {
						return err
					}
				}
				if _, err := app.Service.Summary(params); err != nil {
					return err
				}
			}

			if err := app.Scheduler.RunNow(scheduler.NewCacheCleanupJob(app.Service, app.Logger)); err != nil {
				return err
			}

			stats := app.Cache.Stats()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"account": app.Store.AccountID(),
					"ttl":     app.Cache.TTL().String(),
					"state":   app.Service.State().String(),
					"stats":   stats,
				})
			}

			output.Bold("Analytics Cache - %s", app.Store.AccountID())
			output.Printf("  Entries:    %d\n", stats.Entries)
			output.Printf("  Hits:       %d\n", stats.Hits)
			output.Printf("  Misses:     %d\n", stats.Misses)
			output.Printf("  Evictions:  %d\n", stats.Evictions)
			output.Printf("  TTL:        %s\n", app.Cache.TTL())
			output.Printf("  State:      %s\n", app.Service.State())
			return nil
		},
	}

	addFilterFlags(cmd)
	cmd.Flags().Bool("warm", false, "compute every metric before reporting")
	return cmd
}

func newCacheClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop cached results and reload trades from storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := app.Service.Reset(ctx); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"account": app.Store.AccountID(),
					"trades":  app.Store.Len(),
				})
			}
			output.Success("✓ Cache cleared, %d trades loaded", app.Store.Len())
			return nil
		},
	}
}
