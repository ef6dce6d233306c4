package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/wikifetch"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Lookup, if set, replaces the HTTP client built by the fetch command.
	Lookup wikifetch.Lookup

	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" env:"WIKIFETCH_VERBOSE" help:"Enable debug logging"`

	Fetch   FetchCmd   `cmd:"" help:"Fetch articles for every work item in a CSV file"`
	Summary SummaryCmd `cmd:"" help:"Summarize fetched results"`
	Batch   BatchCmd   `cmd:"" help:"Write found articles' career sections to a text batch"`
	Catalog CatalogCmd `cmd:"" help:"Rebuild the SQLite catalog from the result store"`
}

// FetchCmd is the "fetch" subcommand.
type FetchCmd struct {
	Input              string        `short:"i" required:"" env:"WIKIFETCH_INPUT" help:"CSV file of work items"`
	Output             string        `short:"o" default:"articles" env:"WIKIFETCH_OUTPUT" help:"Result directory"`
	Limit              int           `short:"n" default:"0" help:"Maximum items to process (0 = unlimited)"`
	Delay              time.Duration `default:"1s" env:"WIKIFETCH_DELAY" help:"Delay between items"`
	NoResume           bool          `name:"no-resume" help:"Refetch items that already have a result"`
	Category           string        `short:"c" help:"Only process items in this category"`
	CategoryField      string        `default:"era" help:"Work item column holding the category"`
	KeyColumn          string        `default:"player_qid" help:"CSV column holding the entity key"`
	NameColumn         string        `default:"player_name" help:"CSV column holding the display name"`
	ResumeStrategy     string        `default:"cache-then-scan" enum:"cache-then-scan,scan-only" help:"How completed keys are found (${enum})"`
	Concurrency        int           `default:"1" help:"Items processed at once"`
	CheckpointInterval int           `default:"50" help:"Items between checkpoints"`
	Timeout            time.Duration `default:"30s" help:"Timeout for each HTTP request"`
	MinInterval        time.Duration `default:"100ms" help:"Minimum spacing between HTTP requests"`
	UserAgent          string        `env:"WIKIFETCH_USER_AGENT" help:"User-Agent sent to the API (include contact details)"`
	Suffix             string        `default:"(footballer)" help:"Disambiguating suffix tried after the plain name"`
	Qualifier          string        `default:"footballer" help:"Word added to search queries"`
	MinLength          int           `default:"100" help:"Minimum article length in characters"`
	Catalog            string        `env:"WIKIFETCH_CATALOG" help:"SQLite catalog to mirror results into"`
}

// SummaryCmd is the "summary" subcommand.
type SummaryCmd struct {
	Output        string `short:"o" default:"articles" env:"WIKIFETCH_OUTPUT" help:"Result directory"`
	Catalog       string `env:"WIKIFETCH_CATALOG" help:"Read results from this SQLite catalog instead of the directory"`
	CategoryField string `default:"era" help:"Carried field used to group found results"`
	Export        string `help:"Write found results to this CSV file"`
}

// BatchCmd is the "batch" subcommand.
type BatchCmd struct {
	Output        string `short:"o" default:"articles" env:"WIKIFETCH_OUTPUT" help:"Result directory"`
	File          string `short:"f" required:"" help:"Batch file to write"`
	Category      string `short:"c" help:"Only include results in this category"`
	CategoryField string `default:"era" help:"Carried field holding the category"`
	Skip          int    `default:"0" help:"Found results to skip"`
	Limit         int    `short:"n" default:"50" help:"Maximum results in the batch"`
}

// CatalogCmd is the "catalog" subcommand.
type CatalogCmd struct {
	Output  string `short:"o" default:"articles" env:"WIKIFETCH_OUTPUT" help:"Result directory"`
	Catalog string `required:"" env:"WIKIFETCH_CATALOG" help:"SQLite catalog path"`
}
