package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/importer"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/pkg/utils"
)

// addNoteCommands adds journal note commands.
func addNoteCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Daily journal notes",
		Long:  "Record and review free-form notes about your trading days.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.bootstrap(cmd); err != nil {
				return err
			}
			if app.Mirror == nil {
				return fmt.Errorf("journal notes need the storage mirror; enable storage.mirror in config.toml")
			}
			return nil
		},
	}

	cmd.AddCommand(newNoteAddCmd(app))
	cmd.AddCommand(newNoteListCmd(app))
	cmd.AddCommand(newNoteDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newNoteAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a note",
		Long: `Add a note for a trading day (today by default).

Examples:
  tj note add "Chased the open again" --tags fomo,discipline
  tj note add "Waited for the retest" --date 2024-03-01 --mood calm`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			day := time.Now().In(app.Location)
			if s, _ := cmd.Flags().GetString("date"); s != "" {
				t, err := utils.ParseLocalDate(s, app.Location)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				day = t
			}
			tags, _ := cmd.Flags().GetStringSlice("tags")
			mood, _ := cmd.Flags().GetString("mood")

			now := time.Now()
			note := &models.JournalNote{
				ID:        importer.NewID(),
				Date:      utils.LocalDay(day),
				Content:   strings.Join(args, " "),
				Tags:      tags,
				Mood:      mood,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := app.Mirror.SaveNote(ctx, note); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(note)
			}
			output.Success("✓ Note saved for %s", note.Date.Format("2006-01-02"))
			output.Dim("ID: %s", note.ID)
			return nil
		},
	}

	cmd.Flags().String("date", "", "day the note is about (default today)")
	cmd.Flags().StringSlice("tags", nil, "comma separated tags")
	cmd.Flags().String("mood", "", "how the day felt")
	return cmd
}

func newNoteListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			filter := store.NoteFilter{}
			filter.Tag, _ = cmd.Flags().GetString("tag")
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			if s, _ := cmd.Flags().GetString("from"); s != "" {
				t, err := utils.ParseLocalDate(s, app.Location)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				filter.StartDate = utils.LocalDay(t)
			}
			if s, _ := cmd.Flags().GetString("to"); s != "" {
				t, err := utils.ParseLocalDate(s, app.Location)
				if err != nil {
					return fmt.Errorf("--to: %w", err)
				}
				filter.EndDate = utils.LocalDay(t)
			}

			notes, err := app.Mirror.GetNotes(ctx, filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(notes)
			}
			if len(notes) == 0 {
				output.Info("No notes found.")
				return nil
			}

			for _, n := range notes {
				header := n.Date.Format("Mon 2006-01-02")
				if n.Mood != "" {
					header += "  " + n.Mood
				}
				output.Bold(header)
				output.Printf("  %s\n", n.Content)
				if len(n.Tags) > 0 {
					output.Dim("  #%s", strings.Join(n.Tags, " #"))
				}
				output.Dim("  %s", n.ID)
				output.Println()
			}
			return nil
		},
	}

	cmd.Flags().String("from", "", "first day to include")
	cmd.Flags().String("to", "", "last day to include")
	cmd.Flags().String("tag", "", "only notes with this tag")
	cmd.Flags().IntP("limit", "n", 20, "maximum notes to show")
	return cmd
}

func newNoteDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := app.Mirror.DeleteNote(ctx, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Note %s deleted", args[0])
			return nil
		},
	}
}
