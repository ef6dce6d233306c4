package mock

import (
	"context"

	"github.com/fwojciec/wikifetch"
)

var (
	_ wikifetch.ResultStore   = (*ResultStore)(nil)
	_ wikifetch.ResultCatalog = (*ResultCatalog)(nil)
	_ wikifetch.Resolver      = (*Resolver)(nil)
)

// ResultStore is a mock implementation of wikifetch.ResultStore.
type ResultStore struct {
	PutResultFn  func(ctx context.Context, result *wikifetch.FetchResult) error
	FindResultFn func(ctx context.Context, key string) (*wikifetch.FetchResult, error)
	HasResultFn  func(ctx context.Context, key string) bool
}

func (s *ResultStore) PutResult(ctx context.Context, result *wikifetch.FetchResult) error {
	return s.PutResultFn(ctx, result)
}

func (s *ResultStore) FindResult(ctx context.Context, key string) (*wikifetch.FetchResult, error) {
	return s.FindResultFn(ctx, key)
}

func (s *ResultStore) HasResult(ctx context.Context, key string) bool {
	return s.HasResultFn(ctx, key)
}

// ResultCatalog is a mock implementation of wikifetch.ResultCatalog.
type ResultCatalog struct {
	UpsertResultFn func(ctx context.Context, result *wikifetch.FetchResult) error
	FindResultsFn  func(ctx context.Context, filter wikifetch.ResultFilter) ([]*wikifetch.FetchResult, error)
}

func (c *ResultCatalog) UpsertResult(ctx context.Context, result *wikifetch.FetchResult) error {
	return c.UpsertResultFn(ctx, result)
}

func (c *ResultCatalog) FindResults(ctx context.Context, filter wikifetch.ResultFilter) ([]*wikifetch.FetchResult, error) {
	return c.FindResultsFn(ctx, filter)
}

// Resolver is a mock implementation of wikifetch.Resolver.
type Resolver struct {
	ResolveFn func(ctx context.Context, item *wikifetch.WorkItem) *wikifetch.FetchResult
}

func (r *Resolver) Resolve(ctx context.Context, item *wikifetch.WorkItem) *wikifetch.FetchResult {
	return r.ResolveFn(ctx, item)
}
