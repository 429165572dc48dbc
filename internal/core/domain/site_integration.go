package domain

import (
	"slices"
	"strings"
	"time"
)

// SiteIntegration is the instrumentation configuration of one tenant site.
// It is unique on (tenant_id, site_id).
type SiteIntegration struct {
	TenantID string `json:"tenant_id"`
	SiteID   string `json:"site_id"`

	GAMeasurementID    string `json:"ga_measurement_id,omitempty"`
	GTMContainerID     string `json:"gtm_container_id,omitempty"`
	ConversionEvent    string `json:"conversion_event,omitempty"`
	ConsentCookieName  string `json:"consent_cookie_name,omitempty"`
	ConsentOptOutValue string `json:"consent_opt_out_value,omitempty"`

	SessionReplayEnabled       bool     `json:"session_replay_enabled"`
	SessionReplayProjectKey    string   `json:"session_replay_project_key,omitempty"`
	SessionReplayHost          string   `json:"session_replay_host,omitempty"`
	SessionReplayMaskSelectors []string `json:"session_replay_mask_selectors,omitempty"`

	FeedbackEnabled    bool   `json:"feedback_enabled"`
	FeedbackWidgetURL  string `json:"feedback_widget_url,omitempty"`
	FeedbackProjectKey string `json:"feedback_project_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SiteIntegrationPatch is a partial update. Nil fields are left unchanged.
type SiteIntegrationPatch struct {
	GAMeasurementID    *string `json:"ga_measurement_id,omitempty"`
	GTMContainerID     *string `json:"gtm_container_id,omitempty"`
	ConversionEvent    *string `json:"conversion_event,omitempty"`
	ConsentCookieName  *string `json:"consent_cookie_name,omitempty"`
	ConsentOptOutValue *string `json:"consent_opt_out_value,omitempty"`

	SessionReplayEnabled       *bool    `json:"session_replay_enabled,omitempty"`
	SessionReplayProjectKey    *string  `json:"session_replay_project_key,omitempty"`
	SessionReplayHost          *string  `json:"session_replay_host,omitempty"`
	SessionReplayMaskSelectors []string `json:"session_replay_mask_selectors,omitempty"`

	FeedbackEnabled    *bool   `json:"feedback_enabled,omitempty"`
	FeedbackWidgetURL  *string `json:"feedback_widget_url,omitempty"`
	FeedbackProjectKey *string `json:"feedback_project_key,omitempty"`
}

// ApplyTo writes the non-nil patch fields onto s.
func (p SiteIntegrationPatch) ApplyTo(s *SiteIntegration) {
	setString(&s.GAMeasurementID, p.GAMeasurementID)
	setString(&s.GTMContainerID, p.GTMContainerID)
	setString(&s.ConversionEvent, p.ConversionEvent)
	setString(&s.ConsentCookieName, p.ConsentCookieName)
	setString(&s.ConsentOptOutValue, p.ConsentOptOutValue)
	if p.SessionReplayEnabled != nil {
		s.SessionReplayEnabled = *p.SessionReplayEnabled
	}
	setString(&s.SessionReplayProjectKey, p.SessionReplayProjectKey)
	setString(&s.SessionReplayHost, p.SessionReplayHost)
	if p.SessionReplayMaskSelectors != nil {
		s.SessionReplayMaskSelectors = slices.Clone(p.SessionReplayMaskSelectors)
	}
	if p.FeedbackEnabled != nil {
		s.FeedbackEnabled = *p.FeedbackEnabled
	}
	setString(&s.FeedbackWidgetURL, p.FeedbackWidgetURL)
	setString(&s.FeedbackProjectKey, p.FeedbackProjectKey)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// Validate checks the integration's identity fields.
func (s *SiteIntegration) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(s.TenantID) == "" {
		verr.Add("tenant_id", "required")
	}
	if strings.TrimSpace(s.SiteID) == "" {
		verr.Add("site_id", "required")
	}
	if s.SessionReplayEnabled && s.SessionReplayProjectKey == "" {
		verr.Add("session_replay_project_key", "required when session replay is enabled")
	}
	if s.FeedbackEnabled && s.FeedbackWidgetURL == "" {
		verr.Add("feedback_widget_url", "required when feedback is enabled")
	}
	return verr.OrNil()
}
