package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-hub/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run background workers",
	Long: `Runs the job queue consumers, the scheduler (periodic syncs and
enrichment sweeps) and the manual inbox watchers until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if daemon == nil {
		return notConfigured("daemon")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("sercha-hub %s serving", version)
	cmd.Println("Serving; press Ctrl+C to stop.")
	err := daemon.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("sercha-hub stopped")
	return err
}
