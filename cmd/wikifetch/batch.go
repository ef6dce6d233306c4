package main

import (
	"fmt"

	"github.com/fwojciec/wikifetch"
	"github.com/fwojciec/wikifetch/fs"
)

// Run executes the batch command.
func (c *BatchCmd) Run(deps *Dependencies) error {
	store := fs.NewResultStore(c.Output)
	if err := store.Open(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}

	status := wikifetch.StatusFound
	filter := wikifetch.ResultFilter{
		Status:        &status,
		CategoryField: c.CategoryField,
		Offset:        c.Skip,
		Limit:         c.Limit,
	}
	if c.Category != "" {
		filter.Category = &c.Category
	}

	results, err := store.FindResults(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No found results match; nothing written")
		return nil
	}

	opts := fs.BatchOptions{
		Generated: deps.now(),
		Category:  c.Category,
	}
	if err := fs.WriteBatchFile(c.File, results, opts); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Wrote %d articles to %s\n", len(results), c.File)
	return nil
}
