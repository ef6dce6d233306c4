// Package slog provides logging decorators for wikifetch services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikifetch"
)

// Ensure LoggingLookup implements wikifetch.Lookup.
var _ wikifetch.Lookup = (*LoggingLookup)(nil)

// LoggingLookup wraps a Lookup with debug logging of every remote call.
type LoggingLookup struct {
	next   wikifetch.Lookup
	logger *slog.Logger
}

// NewLoggingLookup creates a new LoggingLookup.
func NewLoggingLookup(next wikifetch.Lookup, logger *slog.Logger) *LoggingLookup {
	return &LoggingLookup{next: next, logger: logger}
}

// Lookup delegates to the wrapped lookup and logs the operation.
func (l *LoggingLookup) Lookup(ctx context.Context, title string) (doc *wikifetch.Document, err error) {
	defer func(begin time.Time) {
		l.logger.Debug("lookup",
			"title", title,
			"length", bodyLength(doc),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.Lookup(ctx, title)
}

// BatchLookup delegates to the wrapped lookup and logs the operation.
func (l *LoggingLookup) BatchLookup(ctx context.Context, titles []string) (docs map[string]*wikifetch.Document, err error) {
	defer func(begin time.Time) {
		l.logger.Debug("batch lookup",
			"titles", len(titles),
			"found", len(docs),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.BatchLookup(ctx, titles)
}

// Search delegates to the wrapped lookup and logs the operation.
func (l *LoggingLookup) Search(ctx context.Context, query string, limit int) (titles []string, err error) {
	defer func(begin time.Time) {
		l.logger.Debug("search",
			"query", query,
			"count", len(titles),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.Search(ctx, query, limit)
}

// AuthoritativeTitle delegates to the wrapped lookup and logs the operation.
func (l *LoggingLookup) AuthoritativeTitle(ctx context.Context, key string) (title string, err error) {
	defer func(begin time.Time) {
		l.logger.Debug("authoritative title",
			"key", key,
			"title", title,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.AuthoritativeTitle(ctx, key)
}

// Close delegates to the wrapped lookup.
func (l *LoggingLookup) Close() error {
	return l.next.Close()
}

func bodyLength(doc *wikifetch.Document) int {
	if doc == nil {
		return 0
	}
	return len(doc.Body)
}
