package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedSource", ErrUnsupportedSource},
		{"ErrSyncInProgress", ErrSyncInProgress},
		{"ErrNotWritable", ErrNotWritable},
		{"ErrInvalidTransition", ErrInvalidTransition},
		{"ErrValidation", ErrValidation},
		{"ErrMapping", ErrMapping},
		{"ErrStorage", ErrStorage},
		{"ErrProvider", ErrProvider},
		{"ErrUnauthorized", ErrUnauthorized},
		{"ErrTimeout", ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestValidationError_ListsEveryField(t *testing.T) {
	verr := &ValidationError{}
	verr.Add("source_id", "required")
	verr.Add("currency", "required when price is set")
	verr.Add("source_id", "duplicate entry")

	assert.Equal(t, []string{"currency", "source_id"}, verr.Fields())
	assert.Contains(t, verr.Error(), "source_id: required")
	assert.Contains(t, verr.Error(), "currency: required when price is set")
	assert.True(t, errors.Is(verr, ErrValidation))
	assert.True(t, errors.Is(verr, ErrInvalidInput))
}

func TestValidationError_OrNil(t *testing.T) {
	assert.NoError(t, (&ValidationError{}).OrNil())

	var nilErr *ValidationError
	assert.NoError(t, nilErr.OrNil())
}

func TestMappingError(t *testing.T) {
	err := &MappingError{Source: SourceShopify, Reason: "missing id"}
	assert.Equal(t, "map shopify record <no id>: missing id", err.Error())
	assert.True(t, errors.Is(err, ErrMapping))

	cause := errors.New("bad json")
	wrapped := fmt.Errorf("batch: %w", &MappingError{Source: SourceWordPress, RecordID: "42", Reason: "decode", Err: cause})
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, KindAdapter, KindOf(wrapped))
}

func TestStorageError_Transient(t *testing.T) {
	err := fmt.Errorf("upsert batch: %w", &StorageError{Op: "upsert", Transient: true, Err: errors.New("database is locked")})
	assert.True(t, IsTransient(err))
	assert.True(t, errors.Is(err, ErrStorage))

	persistent := &StorageError{Op: "upsert", Err: errors.New("disk full")}
	assert.False(t, IsTransient(persistent))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"validation", &ValidationError{Violations: []FieldViolation{{Field: "type"}}}, KindSchema},
		{"mapping", &MappingError{Source: SourceDrive}, KindAdapter},
		{"storage", &StorageError{Op: "get"}, KindStorage},
		{"provider", &ProviderError{Provider: "openai", Err: errors.New("503")}, KindProvider},
		{"authorization", &AuthorizationError{TenantID: "t1", Op: "upsert"}, KindAuthorization},
		{"timeout", &TimeoutError{Op: "pull", Err: context.DeadlineExceeded}, KindTimeout},
		{"deadline", fmt.Errorf("pull: %w", context.DeadlineExceeded), KindTimeout},
		{"cancelled", context.Canceled, KindCancelled},
		{"not found", fmt.Errorf("get: %w", ErrNotFound), KindNotFound},
		{"other", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindOf_AuthorizationWins(t *testing.T) {
	err := errors.Join(&StorageError{Op: "upsert"}, &AuthorizationError{TenantID: "t1", Op: "upsert"})
	assert.Equal(t, KindAuthorization, KindOf(err))
}
