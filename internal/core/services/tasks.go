package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
)

// NewTaskHandler routes dequeued tasks to the orchestrator and enricher.
func NewTaskHandler(syncOrch driving.SyncOrchestrator, enricher driving.EnrichmentService) driven.TaskHandler {
	return func(ctx context.Context, task driven.Task) error {
		switch task.Kind {
		case driven.TaskSync:
			if syncOrch == nil {
				return fmt.Errorf("sync task %s: no orchestrator", task.JobID)
			}
			_, err := syncOrch.Run(ctx, task.TenantID, task.JobID)
			return err
		case driven.TaskEnrich:
			if enricher == nil {
				return fmt.Errorf("enrich task for %s: no enricher", task.TenantID)
			}
			_, err := enricher.Enrich(ctx, task.TenantID, task.ResourceIDs)
			return err
		default:
			return fmt.Errorf("unknown task kind %q", task.Kind)
		}
	}
}
