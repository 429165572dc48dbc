package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

var siteJSON bool

// sitePatch holds the flag values of `site set`.
var sitePatch struct {
	gaMeasurementID    string
	gtmContainerID     string
	conversionEvent    string
	consentCookieName  string
	consentOptOutValue string
	replayEnabled      bool
	replayProjectKey   string
	replayHost         string
	replayMask         []string
	feedbackEnabled    bool
	feedbackWidgetURL  string
	feedbackProjectKey string
}

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage site analytics, consent, replay and feedback settings",
}

var siteGetCmd = &cobra.Command{
	Use:   "get [site-id]",
	Short: "Show a site's integration settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runSiteGet,
}

var siteSetCmd = &cobra.Command{
	Use:   "set [site-id]",
	Short: "Create or update a site's integration settings",
	Long: `Updates only the settings given as flags; a site that does not exist
yet is created. Session replay needs a project key when enabled, and the
feedback widget needs a URL when enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runSiteSet,
}

func init() {
	f := siteSetCmd.Flags()
	f.StringVar(&sitePatch.gaMeasurementID, "ga-measurement-id", "", "Google Analytics measurement id")
	f.StringVar(&sitePatch.gtmContainerID, "gtm-container-id", "", "Google Tag Manager container id")
	f.StringVar(&sitePatch.conversionEvent, "conversion-event", "", "conversion event name")
	f.StringVar(&sitePatch.consentCookieName, "consent-cookie-name", "", "consent cookie name")
	f.StringVar(&sitePatch.consentOptOutValue, "consent-opt-out-value", "", "cookie value meaning opt-out")
	f.BoolVar(&sitePatch.replayEnabled, "replay-enabled", false, "enable session replay")
	f.StringVar(&sitePatch.replayProjectKey, "replay-project-key", "", "session replay project key")
	f.StringVar(&sitePatch.replayHost, "replay-host", "", "session replay host")
	f.StringArrayVar(&sitePatch.replayMask, "replay-mask-selector", nil, "CSS selector to mask in replays (repeatable)")
	f.BoolVar(&sitePatch.feedbackEnabled, "feedback-enabled", false, "enable the feedback widget")
	f.StringVar(&sitePatch.feedbackWidgetURL, "feedback-widget-url", "", "feedback widget script URL")
	f.StringVar(&sitePatch.feedbackProjectKey, "feedback-project-key", "", "feedback project key")

	siteGetCmd.Flags().BoolVar(&siteJSON, "json", false, "output as JSON")

	siteCmd.AddCommand(siteGetCmd)
	siteCmd.AddCommand(siteSetCmd)
	rootCmd.AddCommand(siteCmd)
}

func runSiteGet(cmd *cobra.Command, args []string) error {
	if siteService == nil {
		return notConfigured("site service")
	}
	site, err := siteService.Get(cmd.Context(), tenantID, args[0])
	if err != nil {
		return err
	}
	if siteJSON {
		return printJSON(cmd, site)
	}
	printSite(cmd, site)
	return nil
}

// patchFromFlags builds a partial update from the flags that were set.
func patchFromFlags(cmd *cobra.Command) domain.SiteIntegrationPatch {
	var p domain.SiteIntegrationPatch
	flags := cmd.Flags()
	str := func(name, value string) *string {
		if flags.Changed(name) {
			return ptr(value)
		}
		return nil
	}
	boolean := func(name string, value bool) *bool {
		if flags.Changed(name) {
			return ptr(value)
		}
		return nil
	}

	p.GAMeasurementID = str("ga-measurement-id", sitePatch.gaMeasurementID)
	p.GTMContainerID = str("gtm-container-id", sitePatch.gtmContainerID)
	p.ConversionEvent = str("conversion-event", sitePatch.conversionEvent)
	p.ConsentCookieName = str("consent-cookie-name", sitePatch.consentCookieName)
	p.ConsentOptOutValue = str("consent-opt-out-value", sitePatch.consentOptOutValue)
	p.SessionReplayEnabled = boolean("replay-enabled", sitePatch.replayEnabled)
	p.SessionReplayProjectKey = str("replay-project-key", sitePatch.replayProjectKey)
	p.SessionReplayHost = str("replay-host", sitePatch.replayHost)
	if flags.Changed("replay-mask-selector") {
		p.SessionReplayMaskSelectors = append([]string{}, sitePatch.replayMask...)
	}
	p.FeedbackEnabled = boolean("feedback-enabled", sitePatch.feedbackEnabled)
	p.FeedbackWidgetURL = str("feedback-widget-url", sitePatch.feedbackWidgetURL)
	p.FeedbackProjectKey = str("feedback-project-key", sitePatch.feedbackProjectKey)
	return p
}

func runSiteSet(cmd *cobra.Command, args []string) error {
	if siteService == nil {
		return notConfigured("site service")
	}
	site, err := siteService.Upsert(cmd.Context(), tenantID, args[0], patchFromFlags(cmd))
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	cmd.Printf("Site %s updated.\n", site.SiteID)
	printSite(cmd, site)
	return nil
}

func printSite(cmd *cobra.Command, s *domain.SiteIntegration) {
	show := func(label, value string) {
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %-22s %s\n", label+":", value)
	}
	cmd.Printf("[%s]\n", s.SiteID)
	show("GA measurement id", s.GAMeasurementID)
	show("GTM container id", s.GTMContainerID)
	show("Conversion event", s.ConversionEvent)
	show("Consent cookie", s.ConsentCookieName)
	show("Consent opt-out value", s.ConsentOptOutValue)
	cmd.Printf("  %-22s %t\n", "Session replay:", s.SessionReplayEnabled)
	if s.SessionReplayEnabled {
		show("Replay project key", s.SessionReplayProjectKey)
		show("Replay host", s.SessionReplayHost)
		for _, sel := range s.SessionReplayMaskSelectors {
			show("Replay mask", sel)
		}
	}
	cmd.Printf("  %-22s %t\n", "Feedback widget:", s.FeedbackEnabled)
	if s.FeedbackEnabled {
		show("Feedback widget URL", s.FeedbackWidgetURL)
		show("Feedback project key", s.FeedbackProjectKey)
	}
}
