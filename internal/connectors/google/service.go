package google

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewDriveService creates a Google Drive API service using the provided
// TokenSource. Extra options are appended, so callers can override the
// endpoint or HTTP client.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*drive.Service, error) {
	all := make([]option.ClientOption, 0, len(opts)+1)
	if ts != nil {
		all = append(all, option.WithTokenSource(ts))
	}
	all = append(all, opts...)
	return drive.NewService(ctx, all...)
}
