package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikifetch"
)

var (
	_ wikifetch.ResultStore   = (*LoggingResultStore)(nil)
	_ wikifetch.ProgressIndex = (*LoggingProgressIndex)(nil)
)

// LoggingResultStore wraps a ResultStore with logging of writes.
type LoggingResultStore struct {
	next   wikifetch.ResultStore
	logger *slog.Logger
}

// NewLoggingResultStore creates a new LoggingResultStore.
func NewLoggingResultStore(next wikifetch.ResultStore, logger *slog.Logger) *LoggingResultStore {
	return &LoggingResultStore{next: next, logger: logger}
}

// PutResult delegates to the wrapped store and logs the operation.
func (s *LoggingResultStore) PutResult(ctx context.Context, result *wikifetch.FetchResult) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("put result",
			"key", result.Key,
			"status", result.Status,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.PutResult(ctx, result)
}

// FindResult delegates to the wrapped store.
func (s *LoggingResultStore) FindResult(ctx context.Context, key string) (*wikifetch.FetchResult, error) {
	return s.next.FindResult(ctx, key)
}

// HasResult delegates to the wrapped store.
func (s *LoggingResultStore) HasResult(ctx context.Context, key string) bool {
	return s.next.HasResult(ctx, key)
}

// LoggingProgressIndex wraps a ProgressIndex with logging.
type LoggingProgressIndex struct {
	next   wikifetch.ProgressIndex
	logger *slog.Logger
}

// NewLoggingProgressIndex creates a new LoggingProgressIndex.
func NewLoggingProgressIndex(next wikifetch.ProgressIndex, logger *slog.Logger) *LoggingProgressIndex {
	return &LoggingProgressIndex{next: next, logger: logger}
}

// Load delegates to the wrapped index and logs the operation.
func (p *LoggingProgressIndex) Load(ctx context.Context) (keys wikifetch.KeySet, err error) {
	defer func(begin time.Time) {
		p.logger.Info("progress load",
			"count", len(keys),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Load(ctx)
}

// Persist delegates to the wrapped index and logs the operation.
func (p *LoggingProgressIndex) Persist(ctx context.Context, keys wikifetch.KeySet) (err error) {
	defer func(begin time.Time) {
		p.logger.Debug("progress persist",
			"count", len(keys),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Persist(ctx, keys)
}
