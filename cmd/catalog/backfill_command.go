package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"videofinder-bot/internal/ingest"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	var exportPath string
	var chatID int64

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Import files from a Telegram Desktop channel export",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if chatID == 0 {
				chatID = cfg.Bot.ChannelID
			}

			f, err := os.Open(exportPath)
			if err != nil {
				return fmt.Errorf("open export: %w", err)
			}
			defer f.Close()
			posts, err := ingest.ReadExport(f, chatID)
			if err != nil {
				return err
			}

			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			in := ingest.NewIngestor(store, chatID, ctx.log.Logger)
			stats, err := in.Backfill(cmd.Context(), posts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Messages: %d\n", len(posts))
			fmt.Fprintf(out, "Added:    %d\n", stats.Added)
			fmt.Fprintf(out, "Skipped:  %d\n", stats.Skipped)
			if stats.Failed > 0 {
				fmt.Fprintf(out, "Failed:   %d\n", stats.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exportPath, "export", "result.json", "Path to the export's result.json")
	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "Channel id the messages belong to (defaults to CHANNEL_ID)")
	return cmd
}
