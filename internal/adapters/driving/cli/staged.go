package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

var (
	stageTitle    string
	stageSlug     string
	stageBody     string
	stageBodyFile string
	stageTags     []string
	stageSEO      []string
	stagePrice    float64
	stageCurrency string
	stageLocale   string

	stagedStatus string
	stagedJSON   bool
)

var stagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Review edits waiting to be pushed to their origin",
	Long: `Automation edits are staged as platform payloads and only sent to the
origin platform when committed. Failed commits can be retried.`,
}

var stagedCreateCmd = &cobra.Command{
	Use:   "create [resource-id]",
	Short: "Stage an edit to a resource",
	Long: `Stages an edit. Only flags that are given change the resource.
Fields the source platform cannot write are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runStagedCreate,
}

var stagedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staged edits",
	RunE:  runStagedList,
}

var stagedShowCmd = &cobra.Command{
	Use:   "show [staged-id]",
	Short: "Show a staged edit and its origin payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runStagedShow,
}

var stagedCommitCmd = &cobra.Command{
	Use:   "commit [staged-id]",
	Short: "Push a staged edit to its origin platform",
	Args:  cobra.ExactArgs(1),
	RunE:  runStagedCommit,
}

var stagedRejectCmd = &cobra.Command{
	Use:   "reject [staged-id]",
	Short: "Reject a staged edit",
	Args:  cobra.ExactArgs(1),
	RunE:  runStagedReject,
}

func init() {
	f := stagedCreateCmd.Flags()
	f.StringVar(&stageTitle, "title", "", "new title")
	f.StringVar(&stageSlug, "slug", "", "new slug")
	f.StringVar(&stageBody, "body-html", "", "new HTML body")
	f.StringVar(&stageBodyFile, "body-file", "", "read the new HTML body from a file")
	f.StringSliceVar(&stageTags, "tags", nil, "replacement tags (comma separated)")
	f.StringArrayVar(&stageSEO, "seo", nil, "SEO key=value to set; an empty value removes the key (repeatable)")
	f.Float64Var(&stagePrice, "price", 0, "new price")
	f.StringVar(&stageCurrency, "currency", "", "new currency code")
	f.StringVar(&stageLocale, "locale", "", "new locale")

	stagedListCmd.Flags().StringVar(&stagedStatus, "status", "", "filter by status (pending, sending, sent, failed, rejected)")
	stagedListCmd.Flags().BoolVar(&stagedJSON, "json", false, "output as JSON")

	stagedCmd.AddCommand(stagedCreateCmd)
	stagedCmd.AddCommand(stagedListCmd)
	stagedCmd.AddCommand(stagedShowCmd)
	stagedCmd.AddCommand(stagedCommitCmd)
	stagedCmd.AddCommand(stagedRejectCmd)
	rootCmd.AddCommand(stagedCmd)
}

// diffFromFlags builds a FieldDiff from the flags that were set.
func diffFromFlags(cmd *cobra.Command) (domain.FieldDiff, error) {
	var diff domain.FieldDiff
	flags := cmd.Flags()

	if flags.Changed("title") {
		diff.Title = ptr(stageTitle)
	}
	if flags.Changed("slug") {
		diff.Slug = ptr(stageSlug)
	}
	if flags.Changed("body-html") && flags.Changed("body-file") {
		return diff, fmt.Errorf("%w: --body-html and --body-file are exclusive", domain.ErrInvalidInput)
	}
	if flags.Changed("body-html") {
		diff.BodyHTML = ptr(stageBody)
	}
	if flags.Changed("body-file") {
		data, err := os.ReadFile(stageBodyFile)
		if err != nil {
			return diff, fmt.Errorf("read body file: %w", err)
		}
		diff.BodyHTML = ptr(string(data))
	}
	if flags.Changed("tags") {
		diff.Tags = append([]string{}, stageTags...)
	}
	if flags.Changed("seo") {
		seo, err := parseKeyValues(stageSEO)
		if err != nil {
			return diff, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		diff.SEO = seo
	}
	if flags.Changed("price") {
		diff.Price = ptr(stagePrice)
	}
	if flags.Changed("currency") {
		diff.Currency = ptr(stageCurrency)
	}
	if flags.Changed("locale") {
		diff.Locale = ptr(stageLocale)
	}
	return diff, nil
}

func runStagedCreate(cmd *cobra.Command, args []string) error {
	if pushbackService == nil {
		return notConfigured("pushback service")
	}
	diff, err := diffFromFlags(cmd)
	if err != nil {
		return err
	}

	staged, err := pushbackService.Stage(cmd.Context(), tenantID, args[0], diff)
	if err != nil {
		return fmt.Errorf("stage edit: %w", err)
	}
	cmd.Printf("Staged %s (%s) for %s %s.\n", staged.ID, fieldList(staged.Diff), staged.Source, staged.SourceID)
	cmd.Println("Review with 'staged show', then 'staged commit' or 'staged reject'.")
	return nil
}

func runStagedList(cmd *cobra.Command, _ []string) error {
	if pushbackService == nil {
		return notConfigured("pushback service")
	}
	status, err := domain.ParseStagedStatus(stagedStatus)
	if err != nil {
		return err
	}

	staged, err := pushbackService.List(cmd.Context(), tenantID, status)
	if err != nil {
		return fmt.Errorf("list staged edits: %w", err)
	}
	if stagedJSON {
		return printJSON(cmd, staged)
	}
	if len(staged) == 0 {
		cmd.Println("No staged edits.")
		return nil
	}
	for _, p := range staged {
		cmd.Printf("%s  %-16s %s %s  [%s]\n", p.ID, p.Status, p.Source, p.SourceID, fieldList(p.Diff))
		if p.Error != "" {
			cmd.Printf("    last error (attempt %d): %s\n", p.Attempts, p.Error)
		}
	}
	return nil
}

func runStagedShow(cmd *cobra.Command, args []string) error {
	if pushbackService == nil {
		return notConfigured("pushback service")
	}
	staged, err := pushbackService.Get(cmd.Context(), tenantID, args[0])
	if err != nil {
		return fmt.Errorf("get staged edit: %w", err)
	}
	return printJSON(cmd, staged)
}

func runStagedCommit(cmd *cobra.Command, args []string) error {
	if pushbackService == nil {
		return notConfigured("pushback service")
	}
	staged, err := pushbackService.Commit(cmd.Context(), tenantID, args[0])
	if err != nil {
		if staged != nil {
			cmd.Printf("Commit of %s failed (attempt %d); it can be retried.\n", staged.ID, staged.Attempts)
		}
		return fmt.Errorf("commit staged edit: %w", err)
	}
	cmd.Printf("Sent %s to %s %s.\n", staged.ID, staged.Source, staged.SourceID)
	return nil
}

func runStagedReject(cmd *cobra.Command, args []string) error {
	if pushbackService == nil {
		return notConfigured("pushback service")
	}
	staged, err := pushbackService.Reject(cmd.Context(), tenantID, args[0])
	if err != nil {
		return fmt.Errorf("reject staged edit: %w", err)
	}
	cmd.Printf("Rejected %s.\n", staged.ID)
	return nil
}

func fieldList(diff domain.FieldDiff) string {
	fields := diff.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
