package domain

import (
	"fmt"
	"strings"
	"time"
)

// StagedStatus is the approval state of a push-back payload.
type StagedStatus string

// Push-back states. Only an explicit commit sends a payload.
const (
	StagedPending  StagedStatus = "pending_approval"
	StagedSending  StagedStatus = "sending"
	StagedSent     StagedStatus = "sent"
	StagedFailed   StagedStatus = "failed"
	StagedRejected StagedStatus = "rejected"
)

// IsValid returns true if the status is recognised.
func (s StagedStatus) IsValid() bool {
	switch s {
	case StagedPending, StagedSending, StagedSent, StagedFailed, StagedRejected:
		return true
	default:
		return false
	}
}

// ParseStagedStatus converts user input to a StagedStatus.
// The empty string means any status.
func ParseStagedStatus(s string) (StagedStatus, error) {
	st := StagedStatus(strings.ToLower(strings.TrimSpace(s)))
	if st == "pending" {
		st = StagedPending
	}
	if st != "" && !st.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// Committable reports whether a commit may be attempted from this state.
func (s StagedStatus) Committable() bool {
	return s == StagedPending || s == StagedFailed
}

// OriginPayload is a platform-specific write body built by an adapter.
type OriginPayload map[string]any

// StagedPush is an automation edit converted to an origin payload and held
// for review.
type StagedPush struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	ResourceID string `json:"resource_id"`

	Source     Source `json:"source"`
	SourceSite string `json:"source_site,omitempty"`
	SourceID   string `json:"source_id"`

	Diff    FieldDiff     `json:"diff"`
	Payload OriginPayload `json:"payload"`
	Status  StagedStatus  `json:"status"`

	// Attempts counts commit attempts.
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
}

// Claimable reports whether a commit may claim the payload: it is pending
// or failed, or a previous claim has been sending since before staleBefore.
func (p *StagedPush) Claimable(staleBefore time.Time) bool {
	if p.Status.Committable() {
		return true
	}
	return p.Status == StagedSending && p.UpdatedAt.Before(staleBefore)
}
