package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/wikifetch"
	"github.com/fwojciec/wikifetch/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBatch(t *testing.T) {
	t.Parallel()

	t.Run("writes header, frontmatter and career section", func(t *testing.T) {
		t.Parallel()

		r := foundResult("Q1", "Alice Smith")
		r.Document.Body = "Alice Smith is a footballer.\n\n== Club career ==\nJoined United in 2015.\n\n== Honours ==\nLeague: 2016"
		r.CarriedFields = map[string]string{"team_name": "United", "era": "2011-2015"}

		out, err := fs.FormatBatch([]*wikifetch.FetchResult{r}, fs.BatchOptions{
			Generated: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
			Category:  "2011-2015",
		})

		require.NoError(t, err)
		assert.Contains(t, out, "# Generated: 2025-01-15T10:00:00Z")
		assert.Contains(t, out, "# Total articles: 1")
		assert.Contains(t, out, "# Category filter: 2011-2015")
		assert.Contains(t, out, "---\nindex: 1\nkey: Q1\nname: Alice Smith\n")
		assert.Contains(t, out, "url: https://en.wikipedia.org/wiki/Alice_Smith\n")
		assert.Contains(t, out, "    team_name: United\n")
		assert.Contains(t, out, "sections:\n    - Club career\n    - Honours\n")
		assert.Contains(t, out, "== Club career ==\nJoined United in 2015.\n")
		assert.NotContains(t, out, "League: 2016")
		assert.NotContains(t, out, "is a footballer")
	})

	t.Run("defaults category to none", func(t *testing.T) {
		t.Parallel()

		out, err := fs.FormatBatch(nil, fs.BatchOptions{})

		require.NoError(t, err)
		assert.Contains(t, out, "# Category filter: none")
		assert.Contains(t, out, "# Total articles: 0")
	})

	t.Run("rejects results without an article", func(t *testing.T) {
		t.Parallel()

		_, err := fs.FormatBatch([]*wikifetch.FetchResult{notFoundResult("Q2", "Bob")}, fs.BatchOptions{})

		assert.Equal(t, wikifetch.EINVALID, wikifetch.ErrorCode(err))
	})
}

func TestWriteBatchFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batches", "batch_001.txt")

	err := fs.WriteBatchFile(path, []*wikifetch.FetchResult{foundResult("Q1", "Alice Smith")}, fs.BatchOptions{})

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Article batch\n"))
}
