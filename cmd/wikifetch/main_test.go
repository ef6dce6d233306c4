package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/wikifetch"
	main "github.com/fwojciec/wikifetch/cmd/wikifetch"
	"github.com/fwojciec/wikifetch/fs"
	"github.com/fwojciec/wikifetch/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const careerBody = "Alice Smith is an English footballer.\n\n" +
	"== Club career ==\nShe joined Arsenal in 2010 and won the league twice with the club.\n\n" +
	"== Honours ==\nLeague champion.\n"

// fakeLookup knows a single article, reachable through Q1's sitelink.
func fakeLookup() *mock.Lookup {
	article := &wikifetch.Document{
		SourceID:  "7",
		Title:     "Alice Smith (footballer)",
		URL:       "https://en.wikipedia.org/wiki/Alice_Smith_(footballer)",
		Body:      careerBody,
		FetchedAt: fixedNow,
	}
	return &mock.Lookup{
		AuthoritativeTitleFn: func(_ context.Context, key string) (string, error) {
			if key == "Q1" {
				return article.Title, nil
			}
			return "", wikifetch.Errorf(wikifetch.ENOTFOUND, "no sitelink")
		},
		LookupFn: func(_ context.Context, title string) (*wikifetch.Document, error) {
			if title == article.Title {
				return article, nil
			}
			return nil, wikifetch.Errorf(wikifetch.ENOTFOUND, "missing")
		},
		BatchLookupFn: func(_ context.Context, _ []string) (map[string]*wikifetch.Document, error) {
			return map[string]*wikifetch.Document{}, nil
		},
		SearchFn: func(_ context.Context, _ string, _ int) ([]string, error) {
			return nil, nil
		},
	}
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "players.csv")
	content := "player_qid,player_name,era\n" +
		"Q1,Alice Smith,modern\n" +
		"Q2,Bob Jones,classic\n" +
		"Q1,Alice Smith,modern\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newMain() *main.Main {
	m := main.NewMain()
	m.Lookup = fakeLookup()
	m.Now = func() time.Time { return fixedNow }
	return m
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := main.NewMain().Run(context.Background(), []string{"--help"}, stdout, stderr)

	require.NoError(t, err)
	for _, cmd := range []string{"fetch", "summary", "batch", "catalog"} {
		assert.Contains(t, stdout.String(), cmd, "Help should mention %s command", cmd)
	}
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	err := main.NewMain().Run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
}

func TestCLI_FetchDefaults(t *testing.T) {
	t.Parallel()

	cli := &main.CLI{}
	parser, err := kong.New(cli, kong.Exit(func(int) {}))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"fetch", "--input", "players.csv"})

	require.NoError(t, err)
	assert.Equal(t, "articles", cli.Fetch.Output)
	assert.Equal(t, time.Second, cli.Fetch.Delay)
	assert.Equal(t, 0, cli.Fetch.Limit)
	assert.False(t, cli.Fetch.NoResume)
	assert.Equal(t, "cache-then-scan", cli.Fetch.ResumeStrategy)
	assert.Equal(t, 30*time.Second, cli.Fetch.Timeout)
	assert.Equal(t, 100, cli.Fetch.MinLength)
}

func TestMain_Run_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("fetches, summarizes and resumes", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		input := writeInput(t, dir)
		output := filepath.Join(dir, "articles")
		args := []string{"fetch", "--input", input, "--output", output, "--delay", "0s"}

		stdout := &bytes.Buffer{}
		err := newMain().Run(context.Background(), args, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		out := stdout.String()
		assert.Contains(t, out, "Fetching 2 items")
		assert.Contains(t, out, "[1/2] Alice Smith: found")
		assert.Contains(t, out, "[2/2] Bob Jones: not found")
		assert.Contains(t, out, "Found:     1")
		assert.Contains(t, out, "Not found: 1")
		assert.Contains(t, out, "Success:   50.0%")

		store := fs.NewResultStore(output)
		result, err := store.FindResult(context.Background(), "Q1")
		require.NoError(t, err)
		assert.Equal(t, wikifetch.StatusFound, result.Status)
		assert.Equal(t, []string{"Alice Smith (footballer)"}, result.AttemptedTitles)
		assert.Equal(t, map[string]string{"era": "modern"}, result.CarriedFields)

		stdout.Reset()
		err = newMain().Run(context.Background(), args, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Fetching 0 items")
	})

	t.Run("category filter and limit", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		input := writeInput(t, dir)
		output := filepath.Join(dir, "articles")

		stdout := &bytes.Buffer{}
		err := newMain().Run(context.Background(), []string{
			"fetch", "-i", input, "-o", output, "--delay", "0s", "--category", "classic", "--limit", "1",
		}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "[1/1] Bob Jones")
		assert.NoFileExists(t, filepath.Join(output, "Q1.json"))
	})

	t.Run("missing input is an error", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		stderr := &bytes.Buffer{}

		err := newMain().Run(context.Background(), []string{
			"fetch", "-i", filepath.Join(dir, "nope.csv"), "-o", dir,
		}, &bytes.Buffer{}, stderr)

		assert.Equal(t, wikifetch.ENOTFOUND, wikifetch.ErrorCode(err))
		assert.Contains(t, stderr.String(), "input file not found")
	})

	t.Run("interrupted run prints summary", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		input := writeInput(t, dir)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		lookup := fakeLookup()
		authoritative := lookup.AuthoritativeTitleFn
		lookup.AuthoritativeTitleFn = func(ctx context.Context, key string) (string, error) {
			cancel()
			return authoritative(ctx, key)
		}
		m := newMain()
		m.Lookup = lookup

		stdout := &bytes.Buffer{}
		err := m.Run(ctx, []string{"fetch", "-i", input, "-o", filepath.Join(dir, "out")}, stdout, &bytes.Buffer{})

		require.ErrorIs(t, err, context.Canceled)
		out := stdout.String()
		assert.Contains(t, out, "[1/2] Alice Smith: found")
		assert.NotContains(t, out, "Bob Jones")
		assert.Contains(t, out, "Finished in")
		assert.Contains(t, out, "Found:     1")
		assert.Contains(t, out, "Interrupted. Run again to resume")
	})
}

func TestMain_Run_SummaryBatchCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeInput(t, dir)
	output := filepath.Join(dir, "articles")
	ctx := context.Background()

	require.NoError(t, newMain().Run(ctx, []string{"fetch", "-i", input, "-o", output, "--delay", "0s"}, &bytes.Buffer{}, &bytes.Buffer{}))

	t.Run("summary", func(t *testing.T) {
		export := filepath.Join(dir, "found.csv")
		stdout := &bytes.Buffer{}

		err := newMain().Run(ctx, []string{"summary", "-o", output, "--export", export}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		out := stdout.String()
		assert.Contains(t, out, "Total results: 2")
		assert.Contains(t, out, "found:")
		assert.Contains(t, out, "modern:")
		assert.Contains(t, out, "Alice Smith -> Alice Smith (footballer)")
		assert.Contains(t, out, "Bob Jones (tried")
		assert.Contains(t, out, "processed 2 of 2")
		assert.Contains(t, out, "Exported 1 results")

		data, err := os.ReadFile(export)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "key,display_name,era,article_file,article_length\n"))
		assert.Contains(t, string(data), "Q1,Alice Smith,modern,Q1.json,")
	})

	t.Run("batch", func(t *testing.T) {
		file := filepath.Join(dir, "batch.txt")
		stdout := &bytes.Buffer{}

		err := newMain().Run(ctx, []string{"batch", "-o", output, "-f", file}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Wrote 1 articles")
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "# Total articles: 1")
		assert.Contains(t, string(data), "She joined Arsenal")
		assert.NotContains(t, string(data), "League champion")
	})

	t.Run("batch with no matches writes nothing", func(t *testing.T) {
		file := filepath.Join(dir, "empty.txt")
		stdout := &bytes.Buffer{}

		err := newMain().Run(ctx, []string{"batch", "-o", output, "-f", file, "-c", "classic"}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "nothing written")
		assert.NoFileExists(t, file)
	})

	t.Run("catalog then summary from catalog", func(t *testing.T) {
		db := filepath.Join(dir, "catalog.db")
		stdout := &bytes.Buffer{}

		err := newMain().Run(ctx, []string{"catalog", "-o", output, "--catalog", db}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Cataloged 2 results (1 found, 1 not found)")

		stdout.Reset()
		err = newMain().Run(ctx, []string{"summary", "-o", output, "--catalog", db}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Total results: 2")
	})
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "250ms", main.FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1m5s", main.FormatDuration(65*time.Second+300*time.Millisecond))
}
