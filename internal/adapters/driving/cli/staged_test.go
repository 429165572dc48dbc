package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

func TestStagedCreate_OnlyChangedFields(t *testing.T) {
	s := setupTestServices(t)

	out, err := executeCommand(t, "staged", "create", "r1",
		"--title", "New Title", "--tags", "a,b", "--seo", "meta_description=Short", "--seo", "og_title=")

	require.NoError(t, err)
	diff := s.pushback.gotDiff
	require.NotNil(t, diff.Title)
	assert.Equal(t, "New Title", *diff.Title)
	assert.Nil(t, diff.Slug)
	assert.Nil(t, diff.BodyHTML)
	assert.Nil(t, diff.Price)
	assert.Equal(t, []string{"a", "b"}, diff.Tags)
	assert.Equal(t, map[string]string{"meta_description": "Short", "og_title": ""}, diff.SEO)
	assert.Contains(t, out, "Staged stg-1 (title, tags, seo) for wordpress 42.")
}

func TestStagedCreate_EmptyTitleIsAChange(t *testing.T) {
	s := setupTestServices(t)

	_, err := executeCommand(t, "staged", "create", "r1", "--title", "")

	require.NoError(t, err)
	require.NotNil(t, s.pushback.gotDiff.Title)
	assert.Equal(t, "", *s.pushback.gotDiff.Title)
}

func TestStagedCreate_FlagsDoNotLeakBetweenRuns(t *testing.T) {
	s := setupTestServices(t)

	_, err := executeCommand(t, "staged", "create", "r1", "--price", "12.5", "--currency", "EUR")
	require.NoError(t, err)
	require.NotNil(t, s.pushback.gotDiff.Price)
	assert.InDelta(t, 12.5, *s.pushback.gotDiff.Price, 0.0001)

	_, err = executeCommand(t, "staged", "create", "r1", "--slug", "new-slug")
	require.NoError(t, err)
	assert.Nil(t, s.pushback.gotDiff.Price)
	assert.Nil(t, s.pushback.gotDiff.Currency)
	require.NotNil(t, s.pushback.gotDiff.Slug)
}

func TestStagedCreate_BodyFile(t *testing.T) {
	s := setupTestServices(t)
	path := filepath.Join(t.TempDir(), "body.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>From file</p>"), 0o600))

	_, err := executeCommand(t, "staged", "create", "r1", "--body-file", path)

	require.NoError(t, err)
	require.NotNil(t, s.pushback.gotDiff.BodyHTML)
	assert.Equal(t, "<p>From file</p>", *s.pushback.gotDiff.BodyHTML)
}

func TestStagedCreate_BodyFlagsExclusive(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "staged", "create", "r1", "--body-html", "<p>x</p>", "--body-file", "x.html")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStagedCreate_NotWritable(t *testing.T) {
	s := setupTestServices(t)
	s.pushback.err = domain.ErrNotWritable

	_, err := executeCommand(t, "staged", "create", "r1", "--price", "3")

	assert.ErrorIs(t, err, domain.ErrNotWritable)
}

func TestStagedList(t *testing.T) {
	s := setupTestServices(t)
	title := "T"
	s.pushback.staged = []*domain.StagedPush{
		{ID: "stg-1", Source: domain.SourceShopify, SourceID: "9001", Status: domain.StagedPending,
			Diff: domain.FieldDiff{Title: &title}},
		{ID: "stg-2", Source: domain.SourceWordPress, SourceID: "42", Status: domain.StagedFailed,
			Attempts: 2, Error: "503 from origin"},
	}

	out, err := executeCommand(t, "staged", "list", "--status", "pending")

	require.NoError(t, err)
	assert.Equal(t, domain.StagedPending, s.pushback.gotStatus)
	assert.Contains(t, out, "stg-1")
	assert.Contains(t, out, "[title]")
	assert.Contains(t, out, "last error (attempt 2): 503 from origin")
}

func TestStagedList_BadStatus(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "staged", "list", "--status", "done")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStagedList_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "staged", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No staged edits.")
}

func TestStagedShow(t *testing.T) {
	s := setupTestServices(t)
	s.pushback.staged = []*domain.StagedPush{{
		ID: "stg-1", Status: domain.StagedPending,
		Payload: domain.OriginPayload{"title": "New"},
	}}

	out, err := executeCommand(t, "staged", "show", "stg-1")

	require.NoError(t, err)
	assert.Contains(t, out, `"payload"`)
	assert.Contains(t, out, `"status": "pending_approval"`)
}

func TestStagedCommit(t *testing.T) {
	s := setupTestServices(t)
	s.pushback.staged = []*domain.StagedPush{{
		ID: "stg-1", Source: domain.SourceWordPress, SourceID: "42", Status: domain.StagedPending,
	}}

	out, err := executeCommand(t, "staged", "commit", "stg-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Sent stg-1 to wordpress 42.")
	assert.Equal(t, domain.StagedSent, s.pushback.staged[0].Status)
}

func TestStagedCommit_FailureIsRetryable(t *testing.T) {
	s := setupTestServices(t)
	s.pushback.err = errors.New("origin returned 503")
	s.pushback.staged = []*domain.StagedPush{{ID: "stg-1", Status: domain.StagedPending}}

	out, err := executeCommand(t, "staged", "commit", "stg-1")

	require.Error(t, err)
	assert.Contains(t, out, "Commit of stg-1 failed (attempt 1); it can be retried.")
	assert.Equal(t, domain.StagedFailed, s.pushback.staged[0].Status)
}

func TestStagedReject(t *testing.T) {
	s := setupTestServices(t)
	s.pushback.staged = []*domain.StagedPush{{ID: "stg-1", Status: domain.StagedPending}}

	out, err := executeCommand(t, "staged", "reject", "stg-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Rejected stg-1.")
}
