package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/sercha-hub/internal/connectors/google"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// Ensure Adapter implements the interface.
var _ driven.Adapter = (*Adapter)(nil)

// Adapter pulls files from and pushes metadata to Google Drive.
type Adapter struct {
	limiter    *google.RateLimiter
	httpClient *http.Client
	endpoint   string
	now        func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the base HTTP client; the OAuth2 transport wraps it.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithEndpoint overrides the Drive API base URL.
func WithEndpoint(url string) Option {
	return func(a *Adapter) { a.endpoint = url }
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(cfg google.RateLimitConfig) Option {
	return func(a *Adapter) { a.limiter = google.NewRateLimiter(cfg) }
}

// WithClock overrides the clock used to default updated_at.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates a Drive adapter.
func New(options ...Option) *Adapter {
	a := &Adapter{
		limiter: google.NewRateLimiter(google.DriveRateLimit),
		now:     time.Now,
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Source returns the platform this adapter serves.
func (a *Adapter) Source() domain.Source { return domain.SourceDrive }

// ValidateConnection checks credentials and folder are usable.
func (a *Adapter) ValidateConnection(conn *domain.Connection) error {
	_, err := ParseConfig(conn)
	return err
}

// WritableFields lists the file metadata Drive accepts on update.
func (a *Adapter) WritableFields() []domain.Field {
	return []domain.Field{domain.FieldTitle, domain.FieldSEO}
}

func (a *Adapter) service(ctx context.Context, conn *domain.Connection) (*drive.Service, error) {
	ts, err := google.NewTokenSource(ctx, conn)
	if err != nil {
		return nil, err
	}
	var opts []option.ClientOption
	if a.endpoint != "" {
		opts = append(opts, option.WithEndpoint(a.endpoint))
	}
	if a.httpClient != nil {
		client := &http.Client{
			Timeout:   a.httpClient.Timeout,
			Transport: &oauth2.Transport{Source: ts, Base: a.httpClient.Transport},
		}
		return google.NewDriveService(ctx, nil, append(opts, option.WithHTTPClient(client))...)
	}
	return google.NewDriveService(ctx, ts, opts...)
}

// call waits for the rate limiter, runs fn and maps its error.
func (a *Adapter) call(ctx context.Context, fn func() error) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	err := fn()
	if google.IsRateLimited(err) {
		a.limiter.RecordRateLimitError(0)
	}
	return google.WrapError(err)
}

// Pull lists one page of files and fetches each file's content.
func (a *Adapter) Pull(ctx context.Context, conn *domain.Connection, cursor string) (*driven.PullBatch, error) {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return nil, err
	}
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	svc, err := a.service(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}

	var list *drive.FileList
	err = a.call(ctx, func() error {
		req := svc.Files.List().
			Q(cfg.Query()).
			PageSize(cfg.PageSize).
			OrderBy("modifiedTime").
			Fields(listFields).
			Context(ctx)
		if cur.PageToken != "" {
			req = req.PageToken(cur.PageToken)
		}
		var callErr error
		list, callErr = req.Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	batch := &driven.PullBatch{Records: make([]domain.RawRecord, 0, len(list.Files))}
	for _, file := range list.Files {
		if file.Trashed || file.MimeType == MimeTypeFolder {
			continue
		}
		var content, kind string
		err := a.call(ctx, func() error {
			var fetchErr error
			content, kind, fetchErr = fetchContent(ctx, svc, file)
			return fetchErr
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrAuthInvalid) {
				return nil, fmt.Errorf("fetch %s: %w", file.Id, err)
			}
			logger.Warn("drive: content for %s unavailable: %v", file.Id, err)
		}
		raw, err := toRawRecord(file, content, kind)
		if err != nil {
			return nil, err
		}
		batch.Records = append(batch.Records, raw)
	}
	if list.NextPageToken != "" {
		batch.Cursor = (&Cursor{Version: CursorVersion, PageToken: list.NextPageToken}).Encode()
	}
	return batch, nil
}

// ToOrigin builds a file metadata update. Only the SEO description is
// writable among SEO keys; it maps to the Drive description.
func (a *Adapter) ToOrigin(res *domain.HubResource, diff domain.FieldDiff) (domain.OriginPayload, error) {
	payload := domain.OriginPayload{}
	for _, f := range diff.Fields() {
		switch f {
		case domain.FieldTitle:
			payload["name"] = res.Title
		case domain.FieldSEO:
			for k := range diff.SEO {
				if k != "description" {
					return nil, fmt.Errorf("drive: seo.%s: %w", k, domain.ErrNotWritable)
				}
			}
			payload["description"] = res.SEO["description"]
		default:
			return nil, fmt.Errorf("drive: %s: %w", f, domain.ErrNotWritable)
		}
	}
	return payload, nil
}

// Push updates the file name and description.
func (a *Adapter) Push(ctx context.Context, conn *domain.Connection, sourceID string, payload domain.OriginPayload) error {
	svc, err := a.service(ctx, conn)
	if err != nil {
		return fmt.Errorf("drive service: %w", err)
	}
	update := &drive.File{}
	if name, ok := payload["name"].(string); ok {
		update.Name = name
	}
	if desc, ok := payload["description"].(string); ok {
		update.Description = desc
		update.ForceSendFields = append(update.ForceSendFields, "Description")
	}
	err = a.call(ctx, func() error {
		_, callErr := svc.Files.Update(sourceID, update).Fields("id").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return fmt.Errorf("update file %s: %w", sourceID, err)
	}
	return nil
}
