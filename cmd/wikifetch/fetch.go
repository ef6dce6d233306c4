package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/wikifetch"
	"github.com/fwojciec/wikifetch/csv"
	"github.com/fwojciec/wikifetch/fetch"
	"github.com/fwojciec/wikifetch/fs"
	wikihttp "github.com/fwojciec/wikifetch/http"
	wikislog "github.com/fwojciec/wikifetch/slog"
	"github.com/fwojciec/wikifetch/sqlite"
)

// Run executes the fetch command.
func (c *FetchCmd) Run(deps *Dependencies) error {
	start := deps.now()
	logger := deps.logger()

	source := &csv.WorkItemSource{Path: c.Input, KeyColumn: c.KeyColumn, NameColumn: c.NameColumn}
	items, err := source.ReadWorkItems(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}

	store := fs.NewResultStore(c.Output)
	if err := store.Open(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}

	strategy := wikifetch.ResumeStrategy(c.ResumeStrategy)
	if !strategy.Valid() {
		return wikifetch.Errorf(wikifetch.EINVALID, "unknown resume strategy %q", c.ResumeStrategy)
	}
	progress := fs.NewProgressIndex(store)
	progress.Strategy = strategy
	progress.Logger = logger

	lookup := deps.Lookup
	if lookup == nil {
		opts := []wikihttp.Option{
			wikihttp.WithTimeout(c.Timeout),
			wikihttp.WithMinInterval(c.MinInterval),
		}
		if c.UserAgent != "" {
			opts = append(opts, wikihttp.WithUserAgent(c.UserAgent))
		}
		lookup = wikihttp.NewClient(opts...)
	}
	defer lookup.Close()

	resolver := fetch.NewResolver(wikislog.NewLoggingLookup(lookup, logger))
	resolver.Suffix = c.Suffix
	resolver.Qualifier = c.Qualifier
	resolver.MinBodyLength = c.MinLength
	resolver.Logger = logger
	if deps.Now != nil {
		resolver.Now = deps.Now
	}

	driver := &fetch.Driver{
		Resolver:    resolver,
		Store:       wikislog.NewLoggingResultStore(store, logger),
		Progress:    wikislog.NewLoggingProgressIndex(progress, logger),
		Checkpoints: fs.NewCheckpointFile(c.Output),
		Logger:      logger,
		Now:         deps.Now,
	}

	if c.Catalog != "" {
		db := sqlite.NewDB(c.Catalog)
		if err := db.Open(); err != nil {
			return fmt.Errorf("failed to open catalog at %q: %w", c.Catalog, err)
		}
		defer db.Close()
		driver.Catalog = sqlite.NewResultService(db)
	}

	cfg := fetch.Config{
		Delay:              c.Delay,
		Limit:              c.Limit,
		Category:           c.Category,
		CategoryField:      c.CategoryField,
		Resume:             !c.NoResume,
		CheckpointInterval: c.CheckpointInterval,
		Concurrency:        c.Concurrency,
	}

	printer := &progressPrinter{stdout: deps.Stdout, stderr: deps.Stderr, now: deps.now}
	stats, err := driver.Run(deps.Ctx, items, cfg, printer.handle)
	if stats == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}
	printRunSummary(deps.Stdout, stats, deps.now().Sub(start))
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(deps.Stdout, "Interrupted. Run again to resume from %s\n", c.Output)
	}
	return err
}

// progressPrinter renders fetch progress events as one line per item.
type progressPrinter struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	start  time.Time
}

func (p *progressPrinter) handle(event fetch.ProgressEvent) {
	switch event.Type {
	case fetch.ProgressStarted:
		p.start = p.now()
		fmt.Fprintf(p.stdout, "Fetching %d items\n", event.Total)
	case fetch.ProgressCompleted:
		fmt.Fprintf(p.stdout, "[%d/%d] %s: %s%s\n", event.Completed, event.Total, event.Name,
			statusLabel(event.Status), p.eta(event.Completed, event.Total))
	case fetch.ProgressFailed:
		fmt.Fprintf(p.stderr, "[%d/%d] %s: error: %v\n", event.Completed, event.Total, event.Name, event.Error)
	case fetch.ProgressFinished:
		// Summary printed after the run returns
	}
}

// eta estimates the remaining time from the average time per item so far.
func (p *progressPrinter) eta(completed, total int) string {
	if completed <= 0 || completed >= total {
		return ""
	}
	elapsed := p.now().Sub(p.start)
	remaining := time.Duration(float64(elapsed) / float64(completed) * float64(total-completed))
	return fmt.Sprintf(" (ETA %s)", FormatDuration(remaining))
}

func statusLabel(s wikifetch.Status) string {
	switch s {
	case wikifetch.StatusFound:
		return "found"
	case wikifetch.StatusNotFound:
		return "not found"
	}
	return string(s)
}

func printRunSummary(w io.Writer, stats *wikifetch.RunStats, elapsed time.Duration) {
	fmt.Fprintf(w, "\nFinished in %s\n", FormatDuration(elapsed))
	fmt.Fprintf(w, "  Found:     %d\n", stats.Found)
	fmt.Fprintf(w, "  Not found: %d\n", stats.NotFound)
	fmt.Fprintf(w, "  Errors:    %d\n", stats.Errors)
	fmt.Fprintf(w, "  Success:   %.1f%%\n", stats.SuccessRate())
}

// FormatDuration formats d rounded to whole seconds, or milliseconds when
// shorter than a second.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
