package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

var (
	searchLimit int
	searchType  string
	searchJSON  bool

	getJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search hub resources",
	Long: `Searches the tenant's resources by title, tags, slug and body text.
Without a query the most recently updated resources are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var getCmd = &cobra.Command{
	Use:   "get [resource-id]",
	Short: "Show one hub resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchType, "type", "", "restrict to a resource type (page, post, product, ...)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	getCmd.Flags().BoolVar(&getJSON, "json", false, "output the resource as JSON")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if resourceService == nil {
		return notConfigured("resource service")
	}
	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	rt, err := domain.ParseResourceType(searchType)
	if err != nil {
		return err
	}

	results, err := resourceService.Search(cmd.Context(), tenantID, query, rt)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchLimit > 0 && len(results) > searchLimit {
		results = results[:searchLimit]
	}

	if searchJSON {
		return printJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []*domain.HubResource) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.ID
		}
		cmd.Printf("  [%d] %s (%s)\n", i+1, title, r.Type)
		origin := string(r.Source)
		if r.SourceSite != "" {
			origin += " " + r.SourceSite
		}
		cmd.Printf("      %s  id=%s\n", origin, r.ID)
		if r.BodyText != "" {
			cmd.Printf("      %s\n", truncate(r.BodyText, 120))
		}
		cmd.Println()
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	if resourceService == nil {
		return notConfigured("resource service")
	}

	r, err := resourceService.Get(cmd.Context(), tenantID, args[0])
	if err != nil {
		return fmt.Errorf("get resource: %w", err)
	}
	if getJSON {
		return printJSON(cmd, r)
	}

	cmd.Printf("ID:       %s\n", r.ID)
	cmd.Printf("Origin:   %s\n", r.Key())
	cmd.Printf("Type:     %s\n", r.Type)
	cmd.Printf("Title:    %s\n", r.Title)
	if r.Slug != "" {
		cmd.Printf("Slug:     %s\n", r.Slug)
	}
	if r.URL != "" {
		cmd.Printf("URL:      %s\n", r.URL)
	}
	if r.Price != nil {
		cmd.Printf("Price:    %.2f %s\n", *r.Price, r.Currency)
	}
	if len(r.Tags) > 0 {
		cmd.Printf("Tags:     %v\n", r.Tags)
	}
	cmd.Printf("Updated:  %s\n", r.UpdatedAt.Format("2006-01-02 15:04:05"))
	enriched := "no"
	if len(r.Embedding) > 0 {
		enriched = "yes"
	}
	cmd.Printf("Enriched: %s\n", enriched)
	if r.BodyText != "" {
		cmd.Println()
		cmd.Println(r.BodyText)
	}
	return nil
}
