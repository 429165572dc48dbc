package domain

import (
	"fmt"
	"strings"
)

// Source identifies the platform a resource originates from.
type Source string

// Supported sources.
const (
	SourceWordPress Source = "wordpress"
	SourceShopify   Source = "shopify"
	SourceDrive     Source = "drive"
	SourceManual    Source = "manual"
)

// Sources returns every supported source in a stable order.
func Sources() []Source {
	return []Source{SourceWordPress, SourceShopify, SourceDrive, SourceManual}
}

// ParseSource converts user input to a Source.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.IsValid() {
		return "", fmt.Errorf("%w: unknown source %q", ErrUnsupportedSource, s)
	}
	return src, nil
}

// IsValid returns true if the source is recognised.
func (s Source) IsValid() bool {
	switch s {
	case SourceWordPress, SourceShopify, SourceDrive, SourceManual:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Source) String() string {
	return string(s)
}

// ResourceType classifies a canonical resource.
type ResourceType string

// Supported resource types.
const (
	TypePage       ResourceType = "page"
	TypePost       ResourceType = "post"
	TypeProduct    ResourceType = "product"
	TypeCollection ResourceType = "collection"
	TypeAsset      ResourceType = "asset"
	TypeCategory   ResourceType = "category"
)

// ParseResourceType converts user input to a ResourceType.
// The empty string means any type.
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ToLower(strings.TrimSpace(s)))
	if t != "" && !t.IsValid() {
		return "", fmt.Errorf("%w: unknown resource type %q", ErrInvalidInput, s)
	}
	return t, nil
}

// IsValid returns true if the resource type is recognised.
func (t ResourceType) IsValid() bool {
	switch t {
	case TypePage, TypePost, TypeProduct, TypeCollection, TypeAsset, TypeCategory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ResourceType) String() string {
	return string(t)
}
