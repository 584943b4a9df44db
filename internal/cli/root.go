// Package cli implements the chattrace command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chattrace/chattrace/internal/config"
	"github.com/chattrace/chattrace/internal/worker"
)

var rootCmd = &cobra.Command{
	Use:   "chattrace",
	Short: "Import chat exports and explore group behavior",
	Long: `Chattrace ingests chat log exports (Telegram, WeChat, QQ) into local
SQLite stores and answers behavioral analytics queries against them.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withWorker loads the config, runs a worker for the duration of one
// command, and tears it down afterwards. SIGINT/SIGTERM cancel the
// command's context.
func withWorker(fn func(ctx context.Context, w *worker.Worker) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	w, err := worker.New(cfg)
	if err != nil {
		return fmt.Errorf("open data dir: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	err = fn(ctx, w)
	cancel()
	<-done
	return err
}
