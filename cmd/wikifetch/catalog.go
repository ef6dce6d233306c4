package main

import (
	"fmt"

	"github.com/fwojciec/wikifetch"
	"github.com/fwojciec/wikifetch/fs"
	"github.com/fwojciec/wikifetch/sqlite"
)

// Run executes the catalog command.
func (c *CatalogCmd) Run(deps *Dependencies) error {
	store := fs.NewResultStore(c.Output)
	if err := store.Open(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}

	db := sqlite.NewDB(c.Catalog)
	if err := db.Open(); err != nil {
		return fmt.Errorf("failed to open catalog at %q: %w", c.Catalog, err)
	}
	defer db.Close()
	catalog := sqlite.NewResultService(db)

	results, err := store.FindResults(deps.Ctx, wikifetch.ResultFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifetch.ErrorMessage(err))
		return err
	}

	for _, result := range results {
		if err := catalog.UpsertResult(deps.Ctx, result); err != nil {
			return fmt.Errorf("failed to catalog %q: %w", result.Key, err)
		}
	}

	counts, err := catalog.CountResults(deps.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "Cataloged %d results (%d found, %d not found) in %s\n",
		len(results), counts[wikifetch.StatusFound], counts[wikifetch.StatusNotFound], c.Catalog)
	return nil
}
