package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errNotConfigured is wrapped when a command's service was not injected.
var errNotConfigured = errors.New("service not configured")

func notConfigured(name string) error {
	return fmt.Errorf("%s %w", name, errNotConfigured)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// parseKeyValues turns repeated key=value flags into a map.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[key] = value
	}
	return out, nil
}

// sortedKeys returns the keys of m in order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// secretReader reads secrets from the command's input. On a terminal the
// input is not echoed.
type secretReader struct {
	cmd    *cobra.Command
	reader *bufio.Reader
}

func newSecretReader(cmd *cobra.Command) *secretReader {
	return &secretReader{cmd: cmd, reader: bufio.NewReader(cmd.InOrStdin())}
}

func (r *secretReader) read(prompt string) (string, error) {
	r.cmd.Print(prompt)
	if f, ok := r.cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		r.cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	line, err := r.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func ptr[T any](v T) *T {
	return &v
}
