package manual

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// Format identifies how an inbox file is read.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// IsManifest reports whether files of this format describe canonical fields.
func (f Format) IsManifest() bool {
	return f == FormatJSON || f == FormatYAML
}

var formats = map[string]Format{
	".json":     FormatJSON,
	".yaml":     FormatYAML,
	".yml":      FormatYAML,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatText,
}

// FormatOf returns the format of a path, or false for unsupported files.
func FormatOf(path string) (Format, bool) {
	f, ok := formats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Raw record keys set by Pull.
const (
	PathField     = "_path"
	FormatField   = "_format"
	ContentField  = "_content"
	ModifiedField = "_modified"
	ErrorField    = "_error"
)

// isHidden reports whether any element of a slash-separated relative path
// starts with a dot.
func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

// listFiles returns the slash-separated relative paths of supported,
// non-hidden files under root in lexical order.
func listFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && isHidden(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := FormatOf(rel); ok {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	slices.Sort(paths)
	return paths, nil
}

// readRecord loads one inbox file as a raw record. Unreadable manifests
// produce a record carrying ErrorField so mapping reports them per record.
func readRecord(root, rel string) (domain.RawRecord, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	format, _ := FormatOf(rel)
	raw := domain.RawRecord{}
	if format.IsManifest() {
		manifest, err := decodeManifest(format, data)
		if err != nil {
			raw[ErrorField] = err.Error()
		} else {
			raw = manifest
		}
	} else {
		raw[ContentField] = string(data)
	}
	raw[PathField] = rel
	raw[FormatField] = string(format)
	raw[ModifiedField] = info.ModTime().UTC().Format(time.RFC3339Nano)
	return raw, nil
}

func decodeManifest(format Format, data []byte) (domain.RawRecord, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid json manifest: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid yaml manifest: %w", err)
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("manifest is not an object")
	}
	return normaliseValues(raw).(map[string]any), nil
}

// normaliseValues converts YAML-specific values to their JSON equivalents:
// timestamps become RFC 3339 strings and map[any]any becomes map[string]any.
func normaliseValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normaliseValues(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normaliseValues(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normaliseValues(item)
		}
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".manual-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
