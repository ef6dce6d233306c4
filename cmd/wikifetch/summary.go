package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fwojciec/wikifetch"
	"github.com/fwojciec/wikifetch/csv"
	"github.com/fwojciec/wikifetch/fs"
	"github.com/fwojciec/wikifetch/sqlite"
)

// Run executes the summary command.
func (c *SummaryCmd) Run(deps *Dependencies) error {
	var finder wikifetch.ResultFinder
	if c.Catalog != "" {
		db := sqlite.NewDB(c.Catalog)
		if err := db.Open(); err != nil {
			return fmt.Errorf("failed to open catalog at %q: %w", c.Catalog, err)
		}
		defer db.Close()
		finder = sqlite.NewResultService(db)
	} else {
		store := fs.NewResultStore(c.Output)
		if err := store.Open(); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
			return err
		}
		finder = store
	}

	results, err := finder.FindResults(deps.Ctx, wikifetch.ResultFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}

	printSummary(deps.Stdout, wikifetch.Summarize(results, c.CategoryField))

	cp, err := fs.NewCheckpointFile(c.Output).ReadCheckpoint(deps.Ctx)
	switch {
	case err == nil:
		printCheckpoint(deps.Stdout, cp)
	case wikifetch.ErrorCode(err) == wikifetch.ENOTFOUND:
		// No run has checkpointed into this directory
	default:
		fmt.Fprintf(deps.Stderr, "warning: %s\n", wikifetch.ErrorMessage(err))
	}

	if c.Export != "" {
		status := wikifetch.StatusFound
		found, err := finder.FindResults(deps.Ctx, wikifetch.ResultFilter{Status: &status})
		if err != nil {
			return err
		}
		if err := exportCSV(c.Export, found); err != nil {
			return fmt.Errorf("failed to export %q: %w", c.Export, err)
		}
		fmt.Fprintf(deps.Stdout, "\nExported %d results to %s\n", len(found), c.Export)
	}

	return nil
}

func exportCSV(path string, results []*wikifetch.FetchResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return csv.ExportResults(f, results, fs.ResultExt)
}

func printSummary(w io.Writer, s *wikifetch.Summary) {
	fmt.Fprintf(w, "Total results: %d\n", s.Total)
	for _, status := range s.Statuses() {
		fmt.Fprintf(w, "  %-10s %d\n", status+":", s.ByStatus[status])
	}

	if categories := s.Categories(); len(categories) > 0 {
		fmt.Fprintln(w, "\nFound by category:")
		for _, category := range categories {
			fmt.Fprintf(w, "  %-10s %d\n", category+":", s.FoundByCategory[category])
		}
	}

	if s.ByStatus[wikifetch.StatusFound] > 0 {
		fmt.Fprintln(w, "\nArticle length (characters):")
		fmt.Fprintf(w, "  min %d, max %d, avg %d\n", s.MinLength, s.MaxLength, s.AvgLength)
	}

	if len(s.FoundSamples) > 0 {
		fmt.Fprintln(w, "\nSample found:")
		for _, r := range s.FoundSamples {
			fmt.Fprintf(w, "  %s -> %s\n", r.DisplayName, r.Document.Title)
		}
	}
	if len(s.NotFoundSamples) > 0 {
		fmt.Fprintln(w, "\nSample not found:")
		for _, r := range s.NotFoundSamples {
			fmt.Fprintf(w, "  %s (tried %d titles)\n", r.DisplayName, len(r.AttemptedTitles))
		}
	}
}

func printCheckpoint(w io.Writer, cp *wikifetch.Checkpoint) {
	fmt.Fprintf(w, "\nLast checkpoint: %s (run %s)\n", cp.Timestamp.Format(time.RFC3339), cp.RunID)
	fmt.Fprintf(w, "  processed %d of %d: found %d, not found %d, errors %d\n",
		cp.ProcessedCount, cp.TotalCount, cp.Stats.Found, cp.Stats.NotFound, cp.Stats.Errors)
}
