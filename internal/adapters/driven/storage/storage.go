// Package storage holds helpers shared by the store implementations in
// its subpackages.
package storage

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// CheckBatch verifies every resource in an upsert belongs to tenantID and
// passes schema validation. A tenant mismatch is logged as a security
// event and aborts the whole batch.
func CheckBatch(tenantID string, resources []*domain.HubResource) error {
	if tenantID == "" {
		return &domain.AuthorizationError{Op: "upsert", Detail: "missing tenant"}
	}
	for _, r := range resources {
		if r.TenantID != tenantID {
			logger.Security("cross-tenant write rejected",
				"tenant_id", tenantID, "resource_tenant_id", r.TenantID,
				"source", r.Source, "source_id", r.SourceID)
			return &domain.AuthorizationError{
				TenantID: tenantID,
				Op:       "upsert",
				Detail:   fmt.Sprintf("resource %s belongs to another tenant", r.Key()),
			}
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("upsert %s: %w", r.Key(), err)
		}
	}
	return nil
}

// NewID returns a time-ordered resource id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
