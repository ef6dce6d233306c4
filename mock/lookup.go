package mock

import (
	"context"

	"github.com/fwojciec/wikifetch"
)

var _ wikifetch.Lookup = (*Lookup)(nil)

// Lookup is a mock implementation of wikifetch.Lookup.
type Lookup struct {
	LookupFn             func(ctx context.Context, title string) (*wikifetch.Document, error)
	BatchLookupFn        func(ctx context.Context, titles []string) (map[string]*wikifetch.Document, error)
	SearchFn             func(ctx context.Context, query string, limit int) ([]string, error)
	AuthoritativeTitleFn func(ctx context.Context, key string) (string, error)
	CloseFn              func() error
}

func (l *Lookup) Lookup(ctx context.Context, title string) (*wikifetch.Document, error) {
	return l.LookupFn(ctx, title)
}

func (l *Lookup) BatchLookup(ctx context.Context, titles []string) (map[string]*wikifetch.Document, error) {
	return l.BatchLookupFn(ctx, titles)
}

func (l *Lookup) Search(ctx context.Context, query string, limit int) ([]string, error) {
	return l.SearchFn(ctx, query, limit)
}

func (l *Lookup) AuthoritativeTitle(ctx context.Context, key string) (string, error) {
	return l.AuthoritativeTitleFn(ctx, key)
}

func (l *Lookup) Close() error {
	if l.CloseFn == nil {
		return nil
	}
	return l.CloseFn()
}
