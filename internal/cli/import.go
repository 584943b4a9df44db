package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chattrace/chattrace/internal/importer"
	"github.com/chattrace/chattrace/internal/worker"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a chat export into a new session",
	Long: `Detects the export format, streams the file into a new per-session
store and prints the session id. The source file is never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorker(func(ctx context.Context, w *worker.Worker) error {
			sessionID, err := w.Import(ctx, args[0], printProgress)
			if err != nil {
				return err
			}
			fmt.Printf("\nimported session %s\n", sessionID)
			return nil
		})
	},
}

func printProgress(p importer.Progress) {
	switch p.Stage {
	case importer.StageDetecting:
		fmt.Println("detecting format...")
	case importer.StageParsing, importer.StageImporting:
		if p.TotalBytes > 0 {
			fmt.Printf("\r%-10s %s / %s, %s messages",
				p.Stage,
				humanize.Bytes(uint64(p.BytesRead)),
				humanize.Bytes(uint64(p.TotalBytes)),
				humanize.Comma(p.MessagesProcessed),
			)
		} else {
			fmt.Printf("\r%-10s %s messages", p.Stage, humanize.Comma(p.MessagesProcessed))
		}
	case importer.StageDone:
		fmt.Printf("\rdone: %s messages%20s\n", humanize.Comma(p.MessagesProcessed), "")
	case importer.StageError:
		fmt.Printf("\nimport failed: %s\n", p.Message)
	}
}

func init() {
	rootCmd.AddCommand(importCmd)
}
