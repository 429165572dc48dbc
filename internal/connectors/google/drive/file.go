package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeHTML = "text/html"
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// MaxExportSize is the maximum size for exported content (5MB).
const MaxExportSize = 5 * 1024 * 1024

// Raw record keys added alongside the Drive file fields.
const (
	ContentField     = "_content"
	ContentKindField = "_content_kind"

	kindHTML = "html"
	kindText = "text"
)

// listFields is the files.list projection.
const listFields = "nextPageToken, files(id, name, mimeType, description, size, webViewLink, " +
	"thumbnailLink, createdTime, modifiedTime, properties, parents, trashed)"

// toRawRecord converts a Drive file and its content to a raw record.
func toRawRecord(file *drive.File, content, kind string) (domain.RawRecord, error) {
	data, err := json.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode file %s: %w", file.Id, err)
	}
	var raw domain.RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode file %s: %w", file.Id, err)
	}
	if content != "" {
		raw[ContentField] = content
		raw[ContentKindField] = kind
	}
	return raw, nil
}

// fetchContent retrieves the content of a file and reports whether it is
// HTML or plain text. Binary and oversized files have no content.
func fetchContent(ctx context.Context, svc *drive.Service, file *drive.File) (string, string, error) {
	switch file.MimeType {
	case MimeTypeGoogleDoc:
		content, err := export(ctx, svc, file.Id, ExportMimeHTML)
		return content, kindHTML, err
	case MimeTypeGoogleSheet:
		content, err := export(ctx, svc, file.Id, ExportMimeCSV)
		return content, kindText, err
	case MimeTypeGoogleSlides:
		content, err := export(ctx, svc, file.Id, ExportMimeText)
		return content, kindText, err
	}

	if !isTextFile(file.MimeType) || file.Size > MaxExportSize {
		return "", "", nil
	}

	resp, err := svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return "", "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxExportSize))
	if err != nil {
		return "", "", fmt.Errorf("read file content: %w", err)
	}
	kind := kindText
	if file.MimeType == "text/html" {
		kind = kindHTML
	}
	return string(data), kind, nil
}

func export(ctx context.Context, svc *drive.Service, fileID, mime string) (string, error) {
	resp, err := svc.Files.Export(fileID, mime).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("export file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxExportSize))
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	return string(data), nil
}

// isTextFile checks if a MIME type is likely text content.
func isTextFile(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/x-yaml":
		return true
	default:
		return false
	}
}

// WebURL returns the browser link for a file.
func WebURL(id, webViewLink string) string {
	if webViewLink != "" {
		return webViewLink
	}
	if id == "" {
		return ""
	}
	return "https://drive.google.com/file/d/" + id + "/view"
}
