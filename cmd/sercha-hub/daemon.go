package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-hub/internal/connectors/manual"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// daemon runs the scheduler and one inbox watcher per manual connection.
// Queue consumers are started by main for every command, so sync jobs
// triggered here or from the CLI run in the same process.
type daemon struct {
	scheduler driving.Scheduler
	conns     driven.ConnectionStore
	syncOrch  driving.SyncOrchestrator
	debounce  time.Duration
}

func (d *daemon) Run(ctx context.Context) error {
	conns, err := d.conns.ListAll(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, conn := range conns {
		if conn.Source != domain.SourceManual {
			continue
		}
		root := conn.Param(domain.ParamPath)
		w := manual.NewWatcher(root, d.debounce, d.inboxChanged(gctx, conn.TenantID))
		if err := w.Start(gctx); err != nil {
			logger.Warn("inbox watcher for %s (%s) not started: %v", conn.TenantID, root, err)
			continue
		}
		defer w.Stop()
		logger.Info("watching inbox %s for tenant %s", root, conn.TenantID)
	}

	g.Go(func() error {
		return d.scheduler.Start(gctx)
	})
	return g.Wait()
}

// inboxChanged queues a manual sync for tenantID.
func (d *daemon) inboxChanged(ctx context.Context, tenantID string) func() {
	return func() {
		ack, err := d.syncOrch.TriggerSync(ctx, tenantID, domain.SourceManual)
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			logger.Debug("manual sync for %s already in progress", tenantID)
		case err != nil:
			logger.Warn("manual sync for %s not queued: %v", tenantID, err)
		default:
			logger.Debug("inbox changed, queued manual sync %s for %s", ack.JobID, tenantID)
		}
	}
}
