package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chattrace/chattrace/internal/worker"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorker(func(ctx context.Context, w *worker.Worker) error {
			sessions, err := w.Sessions(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("no sessions yet; run 'chattrace import <file>'")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPLATFORM\tKIND\tIMPORTED")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					s.ID, s.Name, s.Platform, s.ChatKind, humanize.Time(s.ImportedAt))
			}
			return tw.Flush()
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <session-id> <name>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorker(func(ctx context.Context, w *worker.Worker) error {
			return w.Rename(ctx, args[0], args[1])
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its store file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorker(func(ctx context.Context, w *worker.Worker) error {
			if err := w.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted session %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(deleteCmd)
}
