package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chattrace/chattrace/internal/worker"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported export formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorker(func(ctx context.Context, w *worker.Worker) error {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPLATFORM\tEXTENSIONS")
			for _, f := range w.Formats() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.Platform, strings.Join(f.Extensions, ", "))
			}
			return tw.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
