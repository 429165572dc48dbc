// Command sercha-hub is the tenant-scoped content hub.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/sercha-hub/internal/adapters/driven/config/file"
	memqueue "github.com/custodia-labs/sercha-hub/internal/adapters/driven/queue/memory"
	redisqueue "github.com/custodia-labs/sercha-hub/internal/adapters/driven/queue/redis"
	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-hub/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-hub/internal/connectors/google"
	"github.com/custodia-labs/sercha-hub/internal/connectors/google/drive"
	"github.com/custodia-labs/sercha-hub/internal/connectors/manual"
	"github.com/custodia-labs/sercha-hub/internal/connectors/shopify"
	"github.com/custodia-labs/sercha-hub/internal/connectors/wordpress"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/services"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// stores groups the persistence ports selected by the storage driver.
type stores struct {
	resources   driven.ResourceStore
	connections driven.ConnectionStore
	jobs        driven.SyncJobStore
	staging     driven.StagingStore
	sites       driven.SiteIntegrationStore
	scheduler   driven.SchedulerStore
	close       func() error
}

func openStores(ctx context.Context, cfg domain.StorageSettings) (*stores, error) {
	switch cfg.Driver {
	case domain.StoragePostgres:
		pg, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Task schedules are per process, so they stay in memory.
		return &stores{
			resources:   pg.ResourceStore(),
			connections: pg.ConnectionStore(),
			jobs:        pg.SyncJobStore(),
			staging:     pg.StagingStore(),
			sites:       pg.SiteIntegrationStore(),
			scheduler:   memory.NewSchedulerStore(),
			close:       pg.Close,
		}, nil
	case domain.StorageMemory:
		return &stores{
			resources:   memory.NewResourceStore(),
			connections: memory.NewConnectionStore(),
			jobs:        memory.NewSyncJobStore(),
			staging:     memory.NewStagingStore(),
			sites:       memory.NewSiteIntegrationStore(),
			scheduler:   memory.NewSchedulerStore(),
			close:       func() error { return nil },
		}, nil
	default:
		db, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Debug("using sqlite store at %s", db.Path())
		return &stores{
			resources:   db.ResourceStore(),
			connections: db.ConnectionStore(),
			jobs:        db.SyncJobStore(),
			staging:     db.StagingStore(),
			sites:       db.SiteIntegrationStore(),
			scheduler:   db.SchedulerStore(),
			close:       db.Close,
		}, nil
	}
}

// oauthConfig offers the browser authorization flow for Drive connections.
func oauthConfig(source domain.Source, clientID, clientSecret string) (*oauth2.Config, error) {
	if source != domain.SourceDrive {
		return nil, fmt.Errorf("%w: %s has no browser authorization", domain.ErrUnsupportedSource, source)
	}
	return google.OAuthConfig(clientID, clientSecret), nil
}

func openQueue(ctx context.Context, cfg domain.QueueSettings) (driven.JobQueue, error) {
	if cfg.Driver == domain.QueueRedis {
		return redisqueue.NewQueue(ctx, cfg.RedisURL, cfg.Workers)
	}
	return memqueue.NewQueue(cfg.Workers, 0), nil
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir, err := configfile.DefaultDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	cfgStore, err := configfile.NewConfigStore(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	settings, err := configfile.LoadSettings(cfgStore)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	logger.SetFormat(logger.Format(settings.LogFormat))

	st, err := openStores(ctx, settings.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open %s store: %v\n", settings.Storage.Driver, err)
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}()

	queue, err := openQueue(ctx, settings.Queue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open %s queue: %v\n", settings.Queue.Driver, err)
		return err
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("closing queue: %v", err)
		}
	}()

	embeddings := ai.InitEmbeddings(ctx, settings.Embedding)
	defer embeddings.Close()

	registry := services.NewAdapterRegistry(
		wordpress.New(),
		shopify.New(),
		drive.New(),
		manual.New(),
	)

	enricher, err := services.NewEnrichmentService(st.resources, queue, services.EnrichmentConfig{
		Provider:        embeddings.Provider,
		Fallback:        embeddings.Fallback,
		Concurrency:     settings.Embedding.Concurrency,
		FallbackOnError: settings.Embedding.FallbackOnError,
		Dimensions:      settings.Embedding.Dimensions,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	resourceSvc := services.NewResourceService(st.resources, services.WithQueryEmbedder(embeddings.Provider))
	connectionSvc := services.NewConnectionService(st.connections, registry)
	syncOrch := services.NewSyncOrchestrator(
		registry, st.connections, st.resources, st.jobs, queue, enricher, settings.Sync,
	)
	pushbackSvc := services.NewPushbackService(
		st.resources, st.staging, st.connections, registry, enricher, settings.Sync.PushTimeout,
	)
	siteSvc := services.NewSiteIntegrationService(st.sites)
	scheduler := services.NewScheduler(settings.Scheduler, st.scheduler, syncOrch).
		WithEnrichmentSweep(st.connections, st.resources, enricher)

	if err := queue.Start(ctx, services.NewTaskHandler(syncOrch, enricher)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: start queue: %v\n", err)
		return err
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Resources:   resourceSvc,
		Connections: connectionSvc,
		Sync:        syncOrch,
		Enrichment:  enricher,
		Pushback:    pushbackSvc,
		Sites:       siteSvc,
		Daemon: &daemon{
			scheduler: scheduler,
			conns:     st.connections,
			syncOrch:  syncOrch,
			debounce:  manual.DefaultDebounce,
		},
		OAuthConfig: oauthConfig,
	})

	err = cli.Execute(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
