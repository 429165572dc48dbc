// Package cli provides the cobra command tree for sercha-hub.
// Commands call the driving ports only; main injects them with SetServices.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// EnvTenant sets the default tenant for every command.
const EnvTenant = "SERCHA_HUB_TENANT"

const defaultTenant = "default"

// Daemon runs the hub's background work (queue consumers, scheduler,
// inbox watchers) until ctx is cancelled.
type Daemon interface {
	Run(ctx context.Context) error
}

// OAuthConfigFunc returns the authorization code flow config for a source,
// or domain.ErrUnsupportedSource when the source has no browser flow.
type OAuthConfigFunc func(source domain.Source, clientID, clientSecret string) (*oauth2.Config, error)

// Services holds the driving ports used by commands.
type Services struct {
	Resources   driving.ResourceService
	Connections driving.ConnectionService
	Sync        driving.SyncOrchestrator
	Enrichment  driving.EnrichmentService
	Pushback    driving.PushbackService
	Sites       driving.SiteIntegrationService
	Daemon      Daemon
	OAuthConfig OAuthConfigFunc
}

var (
	version = "dev"

	tenantID string
	verbose  bool

	resourceService   driving.ResourceService
	connectionService driving.ConnectionService
	syncOrchestrator  driving.SyncOrchestrator
	enrichmentService driving.EnrichmentService
	pushbackService   driving.PushbackService
	siteService       driving.SiteIntegrationService
	daemon            Daemon
	oauthConfig       OAuthConfigFunc
)

var rootCmd = &cobra.Command{
	Use:   "sercha-hub",
	Short: "Tenant-scoped content hub for WordPress, Shopify, Drive and manual uploads",
	Long: `sercha-hub pulls pages, posts, products and files from connected platforms
into one canonical, tenant-scoped store, enriches them with embeddings, and
pushes approved edits back to their origin.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&tenantID, "tenant", "t", tenantDefault(),
		"tenant to act on (env "+EnvTenant+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func tenantDefault() string {
	if t := os.Getenv(EnvTenant); t != "" {
		return t
	}
	return defaultTenant
}

// SetServices injects the driving ports.
func SetServices(s Services) {
	resourceService = s.Resources
	connectionService = s.Connections
	syncOrchestrator = s.Sync
	enrichmentService = s.Enrichment
	pushbackService = s.Pushback
	siteService = s.Sites
	daemon = s.Daemon
	oauthConfig = s.OAuthConfig
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
