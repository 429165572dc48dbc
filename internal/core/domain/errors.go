package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist in the caller's tenant.
	// It is returned identically whether the entity is absent or owned by another tenant.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedSource indicates no adapter is registered for a source.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrSyncInProgress indicates a sync is already running for a (tenant, source) pair.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrNotWritable indicates a field diff touches a field the adapter cannot push back.
	ErrNotWritable = errors.New("field not writable")

	// ErrInvalidTransition indicates a state change not permitted from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrRateLimited indicates the platform API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the platform rejected the connection credentials.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Taxonomy roots. Typed errors below match these through errors.Is.

	// ErrValidation is the root of schema violations.
	ErrValidation = errors.New("validation failed")

	// ErrMapping is the root of adapter mapping failures.
	ErrMapping = errors.New("mapping failed")

	// ErrStorage is the root of storage failures.
	ErrStorage = errors.New("storage failure")

	// ErrProvider is the root of embedding provider failures.
	ErrProvider = errors.New("provider unavailable")

	// ErrUnauthorized is the root of tenant isolation violations.
	ErrUnauthorized = errors.New("tenant isolation violation")

	// ErrTimeout is the root of adapter I/O deadline failures.
	ErrTimeout = errors.New("timeout")
)

// ErrorKind classifies an error for job summaries and driving adapters.
type ErrorKind string

// Error kinds.
const (
	KindNone          ErrorKind = ""
	KindSchema        ErrorKind = "schema"
	KindAdapter       ErrorKind = "adapter"
	KindStorage       ErrorKind = "storage"
	KindProvider      ErrorKind = "provider"
	KindAuthorization ErrorKind = "authorization"
	KindTimeout       ErrorKind = "timeout"
	KindCancelled     ErrorKind = "cancelled"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

// KindOf returns the taxonomy kind of err.
// Authorization is checked first because it must never be masked.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnauthorized):
		return KindAuthorization
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrValidation):
		return KindSchema
	case errors.Is(err, ErrMapping):
		return KindAdapter
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrProvider):
		return KindProvider
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// FieldViolation describes one invalid field.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every field a candidate resource violates.
type ValidationError struct {
	Violations []FieldViolation
}

// Add records a violation.
func (e *ValidationError) Add(field, reason string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Reason: reason})
}

// Fields returns the sorted names of the violated fields.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]struct{}, len(e.Violations))
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if _, ok := seen[v.Field]; ok {
			continue
		}
		seen[v.Field] = struct{}{}
		fields = append(fields, v.Field)
	}
	sort.Strings(fields)
	return fields
}

// OrNil returns e when it holds violations, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports ErrValidation and ErrInvalidInput as matches.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == ErrInvalidInput
}

// MappingError reports a raw record an adapter could not map.
type MappingError struct {
	Source   Source
	RecordID string // empty when the record had no usable identifier
	Reason   string
	Err      error
}

func (e *MappingError) Error() string {
	id := e.RecordID
	if id == "" {
		id = "<no id>"
	}
	msg := fmt.Sprintf("map %s record %s: %s", e.Source, id, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrMapping as a match.
func (e *MappingError) Is(target error) bool { return target == ErrMapping }

// Unwrap returns the underlying cause.
func (e *MappingError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure.
// Transient failures are retried by the sync orchestrator.
type StorageError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *StorageError) Error() string {
	if e.Transient {
		return fmt.Sprintf("storage %s (transient): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Is reports ErrStorage as a match.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a storage failure worth retrying.
func IsTransient(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Transient
}

// ProviderError wraps an embedding provider failure.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

// Is reports ErrProvider as a match.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }

// AuthorizationError reports an attempted tenant isolation violation.
// It is never retried.
type AuthorizationError struct {
	TenantID string
	Op       string
	Detail   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: tenant %s: %s", e.Op, e.TenantID, e.Detail)
}

// Is reports ErrUnauthorized as a match.
func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

// TimeoutError reports an adapter I/O call that exceeded its deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

// Is reports ErrTimeout as a match.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Unwrap returns the underlying cause.
func (e *TimeoutError) Unwrap() error { return e.Err }
