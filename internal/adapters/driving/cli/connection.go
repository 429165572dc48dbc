package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driving/oauth"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

var (
	connSite      string
	connParams    []string
	connSecrets   []string
	connAuthorize bool
	connJSON      bool
)

// authorizeFlow is replaced in tests.
var (
	authorizeFlow    = oauth.Authorize
	authorizeTimeout = 5 * time.Minute
)

var connectionCmd = &cobra.Command{
	Use:     "connection",
	Aliases: []string{"conn"},
	Short:   "Manage platform connections",
	Long: `A connection holds the parameters needed to pull from one tenant site:
a WordPress base URL, a Shopify store domain and token, a Drive folder,
or a manual inbox directory.`,
}

var connectionAddCmd = &cobra.Command{
	Use:   "add [source]",
	Short: "Add a connection",
	Long: `Adds a connection for a source. Parameters are given as key=value pairs;
parameters named with --secret are prompted for without echo.

Examples:
  sercha-hub connection add wordpress --site blog.example.com \
    --param base_url=https://blog.example.com
  sercha-hub connection add shopify --param store_domain=shop.myshopify.com \
    --secret access_token
  sercha-hub connection add drive --param folder_id=1AbC --param client_id=123.apps \
    --secret client_secret --authorize
  sercha-hub connection add manual --param path=/srv/inbox

--authorize opens a browser to grant access and stores the refresh token.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectionAdd,
}

var connectionListCmd = &cobra.Command{
	Use:   "list [source]",
	Short: "List connections",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConnectionList,
}

var connectionRemoveCmd = &cobra.Command{
	Use:   "remove [connection-id]",
	Short: "Remove a connection",
	Long:  `Removes a connection. Resources already pulled through it are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionRemove,
}

func init() {
	connectionAddCmd.Flags().StringVar(&connSite, "site", "", "source site identifier (defaults per platform)")
	connectionAddCmd.Flags().StringArrayVarP(&connParams, "param", "p", nil, "connection parameter as key=value (repeatable)")
	connectionAddCmd.Flags().StringArrayVar(&connSecrets, "secret", nil, "parameter to prompt for without echo (repeatable)")
	connectionAddCmd.Flags().BoolVar(&connAuthorize, "authorize", false, "obtain a refresh token through the browser")
	connectionListCmd.Flags().BoolVar(&connJSON, "json", false, "output connections as JSON")

	connectionCmd.AddCommand(connectionAddCmd)
	connectionCmd.AddCommand(connectionListCmd)
	connectionCmd.AddCommand(connectionRemoveCmd)
	rootCmd.AddCommand(connectionCmd)
}

func runConnectionAdd(cmd *cobra.Command, args []string) error {
	if connectionService == nil {
		return notConfigured("connection service")
	}
	source, err := domain.ParseSource(args[0])
	if err != nil {
		return err
	}
	params, err := parseKeyValues(connParams)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if params == nil {
		params = make(map[string]string)
	}

	secrets := newSecretReader(cmd)
	for _, key := range connSecrets {
		value, err := secrets.read(fmt.Sprintf("Enter %s: ", key))
		if err != nil {
			return err
		}
		if value == "" {
			return fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, key)
		}
		params[key] = value
	}

	if connAuthorize {
		if err := authorize(cmd, source, params); err != nil {
			return err
		}
	}

	conn, err := connectionService.Add(cmd.Context(), &domain.Connection{
		TenantID:   tenantID,
		Source:     source,
		SourceSite: connSite,
		Params:     params,
	})
	if err != nil {
		return fmt.Errorf("add connection: %w", err)
	}

	site := conn.SourceSite
	if site == "" {
		site = "(default site)"
	}
	cmd.Printf("Connection %s added for %s %s.\n", conn.ID, conn.Source, site)
	return nil
}

// authorize runs the browser flow and stores the granted tokens in params.
func authorize(cmd *cobra.Command, source domain.Source, params map[string]string) error {
	if oauthConfig == nil {
		return notConfigured("oauth")
	}
	clientID := params[domain.ParamClientID]
	if clientID == "" {
		return fmt.Errorf("%w: --authorize needs the %s parameter", domain.ErrInvalidInput, domain.ParamClientID)
	}
	cfg, err := oauthConfig(source, clientID, params[domain.ParamClientSecret])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), authorizeTimeout)
	defer cancel()
	tok, err := authorizeFlow(ctx, cfg, func(url string) {
		cmd.Printf("Opening your browser to authorize %s. If it does not open, visit:\n  %s\n", source, url)
	})
	if err != nil {
		return fmt.Errorf("authorize %s: %w", source, err)
	}
	params[domain.ParamRefreshToken] = tok.RefreshToken
	params[domain.ParamAccessToken] = tok.AccessToken
	cmd.Println("Authorization granted.")
	return nil
}

func runConnectionList(cmd *cobra.Command, args []string) error {
	if connectionService == nil {
		return notConfigured("connection service")
	}
	var source domain.Source
	if len(args) > 0 {
		s, err := domain.ParseSource(args[0])
		if err != nil {
			return err
		}
		source = s
	}

	conns, err := connectionService.List(cmd.Context(), tenantID, source)
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}

	redacted := make([]domain.Connection, len(conns))
	for i, c := range conns {
		redacted[i] = c.Redacted()
	}
	if connJSON {
		return printJSON(cmd, redacted)
	}
	if len(redacted) == 0 {
		cmd.Println("No connections configured.")
		return nil
	}

	for _, c := range redacted {
		cmd.Printf("%s  %-9s %s\n", c.ID, c.Source, c.SourceSite)
		var pairs []string
		for _, k := range sortedKeys(c.Params) {
			pairs = append(pairs, k+"="+c.Params[k])
		}
		if len(pairs) > 0 {
			cmd.Printf("    %s\n", strings.Join(pairs, " "))
		}
	}
	return nil
}

func runConnectionRemove(cmd *cobra.Command, args []string) error {
	if connectionService == nil {
		return notConfigured("connection service")
	}
	if err := connectionService.Remove(cmd.Context(), tenantID, args[0]); err != nil {
		return err
	}
	cmd.Printf("Connection %s removed.\n", args[0])
	return nil
}
