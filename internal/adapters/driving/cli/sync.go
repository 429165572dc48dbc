package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
)

// syncPollInterval is how often a waiting sync checks job status.
var syncPollInterval = 500 * time.Millisecond

var (
	syncAll    bool
	syncDetach bool
	statusJSON bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [source]",
	Short: "Pull resources from a connected platform",
	Long: `Queues a sync job for the tenant's connections of one source
(wordpress, shopify, drive or manual) and waits for it to finish.
Use --all to queue a sync for every connected tenant and source.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status [source]",
	Short: "Show the latest sync job for a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [source]",
	Short: "Cancel the running sync job for a source",
	Long: `Requests cancellation of a running sync job. Batches already
committed are kept; the job stops before its next pull.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every connected tenant and source")
	syncCmd.Flags().BoolVar(&syncDetach, "detach", false, "queue the job and return without waiting")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output the job as JSON")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return notConfigured("sync service")
	}
	ctx := cmd.Context()

	if syncAll {
		cmd.Println("Queueing sync for all connections...")
		n, err := syncOrchestrator.SyncAll(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		cmd.Printf("Queued %d sync job(s).\n", n)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("%w: a source or --all is required", domain.ErrInvalidInput)
	}
	source, err := domain.ParseSource(args[0])
	if err != nil {
		return err
	}

	ack, err := syncOrchestrator.TriggerSync(ctx, tenantID, source)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Printf("Queued sync job %s for %s.\n", ack.JobID, source)
	if syncDetach {
		return nil
	}

	job, err := waitForJob(ctx, cmd, syncOrchestrator, source, ack.JobID)
	if err != nil {
		return err
	}
	printJobSummary(cmd, job)
	if job.State == domain.JobFailed {
		return fmt.Errorf("sync failed (%s): %s", job.ErrorKind, job.Error)
	}
	return nil
}

// waitForJob polls until the job reaches a terminal state, printing progress.
func waitForJob(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	source domain.Source,
	jobID string,
) (*domain.SyncJob, error) {
	ticker := time.NewTicker(syncPollInterval)
	defer ticker.Stop()

	lastCount := -1
	for {
		job, err := syncOrch.Status(ctx, tenantID, source)
		if err != nil {
			return nil, fmt.Errorf("sync status: %w", err)
		}
		if job.ID == jobID {
			if job.State.IsTerminal() {
				if lastCount >= 0 {
					cmd.Println()
				}
				return job, nil
			}
			if job.Processed != lastCount {
				cmd.Printf("\rProcessing... %d records", job.Processed)
				lastCount = job.Processed
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printJobSummary(cmd *cobra.Command, job *domain.SyncJob) {
	cmd.Printf("Job %s: %s\n", job.ID, job.State)
	cmd.Printf("  Processed: %d  Upserted: %d  Skipped: %d\n", job.Processed, job.Upserted, job.Skipped)
	for _, f := range job.Failures {
		id := f.RecordID
		if id == "" {
			id = "(no id)"
		}
		cmd.Printf("  skipped %s: %s\n", id, f.Reason)
	}
	if job.Cursor != "" && job.State != domain.JobCompleted {
		cmd.Printf("  Last committed cursor: %s\n", job.Cursor)
	}
	if job.Error != "" {
		cmd.Printf("  Error (%s): %s\n", job.ErrorKind, job.Error)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return notConfigured("sync service")
	}
	source, err := domain.ParseSource(args[0])
	if err != nil {
		return err
	}

	job, err := syncOrchestrator.Status(cmd.Context(), tenantID, source)
	if err != nil {
		return fmt.Errorf("sync status: %w", err)
	}
	if statusJSON {
		return printJSON(cmd, job)
	}
	if job.ID == "" {
		cmd.Printf("No sync has run for %s.\n", source)
		return nil
	}
	printJobSummary(cmd, job)
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return notConfigured("sync service")
	}
	source, err := domain.ParseSource(args[0])
	if err != nil {
		return err
	}
	if err := syncOrchestrator.Cancel(tenantID, source); err != nil {
		return fmt.Errorf("cancel sync: %w", err)
	}
	cmd.Printf("Cancellation requested for %s.\n", source)
	return nil
}
