// Package fetch provides the resumable fetch pipeline.
// It coordinates progress loading, article resolution, durable storage and
// checkpointing of fetch results.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/wikifetch"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Driver defaults.
const (
	DefaultDelay              = time.Second
	DefaultCheckpointInterval = 50
)

// Driver runs work items through a Resolver and persists every outcome.
type Driver struct {
	Resolver    wikifetch.Resolver
	Store       wikifetch.ResultStore
	Progress    wikifetch.ProgressIndex
	Checkpoints wikifetch.CheckpointWriter

	// Catalog, if set, receives a copy of every persisted result.
	// Catalog failures are logged and never counted as item errors.
	Catalog wikifetch.ResultCatalog

	Logger *slog.Logger
	Now    func() time.Time
}

// Config holds per-run settings.
type Config struct {
	// Delay is the minimum spacing between items, including failed ones.
	// Sequential runs sleep it between items; concurrent runs share one
	// limiter so the spacing holds across all workers.
	Delay time.Duration
	// Limit caps the number of items processed. Zero means unlimited.
	Limit int
	// Category, if set, keeps only items whose CategoryField equals it.
	Category      string
	CategoryField string
	// Resume skips items that already have a persisted result. Without it
	// every item is processed, but the progress index still keeps the keys
	// persisted by earlier runs.
	Resume bool
	// CheckpointInterval is the number of processed items between
	// checkpoints.
	CheckpointInterval int
	// Concurrency is the number of items processed at once.
	Concurrency int
}

// Validate returns an error if the config contains invalid fields.
func (c Config) Validate() error {
	if c.Delay < 0 {
		return wikifetch.Errorf(wikifetch.EINVALID, "delay must not be negative")
	}
	if c.Limit < 0 {
		return wikifetch.Errorf(wikifetch.EINVALID, "limit must not be negative")
	}
	if c.CheckpointInterval < 0 {
		return wikifetch.Errorf(wikifetch.EINVALID, "checkpoint interval must not be negative")
	}
	if c.Concurrency < 0 {
		return wikifetch.Errorf(wikifetch.EINVALID, "concurrency must not be negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.CheckpointInterval == 0 {
		c.CheckpointInterval = DefaultCheckpointInterval
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	if c.CategoryField == "" {
		c.CategoryField = wikifetch.DefaultCategoryField
	}
	return c
}

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	Key       string
	Name      string
	Status    wikifetch.Status
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting run progress.
type ProgressFunc func(event ProgressEvent)

// Pending returns the items a run will process: items in the category (if
// set), deduplicated by key, without keys in done, truncated to the limit.
// Input order is preserved.
func Pending(items []*wikifetch.WorkItem, done wikifetch.KeySet, cfg Config) []*wikifetch.WorkItem {
	cfg = cfg.withDefaults()

	seen := make(map[string]bool, len(items))
	var pending []*wikifetch.WorkItem
	for _, item := range items {
		if cfg.Limit > 0 && len(pending) >= cfg.Limit {
			break
		}
		if cfg.Category != "" && item.Field(cfg.CategoryField) != cfg.Category {
			continue
		}
		if seen[item.Key] {
			continue
		}
		seen[item.Key] = true
		if done.Has(item.Key) {
			continue
		}
		pending = append(pending, item)
	}
	return pending
}

// Run processes items and returns the run statistics.
//
// Only configuration problems and progress loading failures abort a run.
// Per-item failures are counted in RunStats.Errors and the key is left out
// of the progress index so a later run retries it.
//
// When ctx is canceled, no new items are started; the item in flight
// finishes, the final checkpoint is written, and Run returns the stats
// together with ctx.Err().
func (d *Driver) Run(ctx context.Context, items []*wikifetch.WorkItem, cfg Config, progress ProgressFunc) (*wikifetch.RunStats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	done, persist, err := d.loadProgress(ctx, cfg)
	if err != nil {
		return nil, err
	}

	skip := wikifetch.NewKeySet()
	if cfg.Resume {
		skip = done.Clone()
	}
	pending := Pending(items, skip, cfg)
	r := &run{
		driver:   d,
		cfg:      cfg,
		id:       uuid.NewString(),
		done:     done,
		persist:  persist,
		total:    len(pending),
		progress: progress,
	}

	d.logger().Info("run started", "run_id", r.id, "items", len(items), "pending", len(pending), "skipped", len(items)-len(pending), "resume", cfg.Resume)
	r.emit(ProgressEvent{Type: ProgressStarted, Total: r.total})

	if cfg.Concurrency > 1 {
		r.parallel(ctx, pending)
	} else {
		r.sequential(ctx, pending)
	}

	r.mu.Lock()
	r.checkpoint(ctx)
	stats := r.stats
	r.mu.Unlock()

	r.emit(ProgressEvent{Type: ProgressFinished, Completed: stats.Processed(), Total: r.total})
	d.logger().Info("run finished", "run_id", r.id, "found", stats.Found, "not_found", stats.NotFound, "errors", stats.Errors)

	return &stats, ctx.Err()
}

// loadProgress returns the keys already persisted and whether the progress
// index should be rewritten at checkpoints. A load failure is fatal only
// when resuming; otherwise the index is left as it was, since persisting
// this run's keys alone would drop the earlier ones.
func (d *Driver) loadProgress(ctx context.Context, cfg Config) (wikifetch.KeySet, bool, error) {
	if d.Progress == nil {
		return wikifetch.NewKeySet(), false, nil
	}

	keys, err := d.Progress.Load(ctx)
	if err != nil {
		if cfg.Resume {
			return nil, false, fmt.Errorf("load progress: %w", err)
		}
		d.logger().Warn("progress index unavailable, leaving it unchanged", "err", err)
		return wikifetch.NewKeySet(), false, nil
	}
	return keys, true, nil
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

func (d *Driver) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

// run holds the mutable state of one Driver.Run call.
type run struct {
	driver   *Driver
	cfg      Config
	id       string
	total    int
	progress ProgressFunc

	mu        sync.Mutex
	done      wikifetch.KeySet
	persist   bool
	stats     wikifetch.RunStats
	processed int
}

func (r *run) sequential(ctx context.Context, items []*wikifetch.WorkItem) {
	for i, item := range items {
		if ctx.Err() != nil {
			return
		}
		r.process(ctx, item)
		if i < len(items)-1 {
			if err := sleep(ctx, r.cfg.Delay); err != nil {
				return
			}
		}
	}
}

func (r *run) parallel(ctx context.Context, items []*wikifetch.WorkItem) {
	// One limiter for all workers keeps item starts at least Delay apart.
	limiter := rate.NewLimiter(rate.Inf, 1)
	if r.cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(r.cfg.Delay), 1)
	}

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			r.process(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
}

// process resolves and persists one item. It runs detached from ctx
// cancellation so an interrupted run never abandons a half-processed item.
func (r *run) process(ctx context.Context, item *wikifetch.WorkItem) {
	ctx = context.WithoutCancel(ctx)
	d := r.driver

	result := d.Resolver.Resolve(ctx, item)
	result.CarriedFields = item.CopyFields()

	err := result.Validate()
	if err == nil {
		err = d.Store.PutResult(ctx, result)
	}
	if err != nil {
		d.logger().Warn("persist failed", "key", item.Key, "err", err)
	} else if d.Catalog != nil {
		if cerr := d.Catalog.UpsertResult(ctx, result); cerr != nil {
			d.logger().Warn("catalog upsert failed", "key", item.Key, "err", cerr)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.processed++
	event := ProgressEvent{
		Completed: r.processed,
		Total:     r.total,
		Key:       item.Key,
		Name:      item.DisplayName,
	}
	if err != nil {
		r.stats.Errors++
		event.Type = ProgressFailed
		event.Error = err
	} else {
		r.done.Add(item.Key)
		switch result.Status {
		case wikifetch.StatusFound:
			r.stats.Found++
		case wikifetch.StatusNotFound:
			r.stats.NotFound++
		}
		event.Type = ProgressCompleted
		event.Status = result.Status
	}
	r.emit(event)

	if r.processed%r.cfg.CheckpointInterval == 0 {
		r.checkpoint(ctx)
	}
}

// checkpoint persists the progress set and writes a checkpoint snapshot.
// Both writes are best-effort. Callers must hold r.mu.
func (r *run) checkpoint(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	d := r.driver

	if r.persist {
		if err := d.Progress.Persist(ctx, r.done.Clone()); err != nil {
			d.logger().Warn("progress persist failed", "err", err)
		}
	}

	if d.Checkpoints != nil {
		cp := &wikifetch.Checkpoint{
			RunID:          r.id,
			Stats:          r.stats,
			ProcessedCount: r.processed,
			TotalCount:     r.total,
			Timestamp:      d.now(),
		}
		if err := d.Checkpoints.WriteCheckpoint(ctx, cp); err != nil {
			d.logger().Warn("checkpoint write failed", "err", err)
		}
	}
}

func (r *run) emit(event ProgressEvent) {
	if r.progress != nil {
		r.progress(event)
	}
}

// sleep waits for d or until ctx is done. A zero or negative d returns
// immediately.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
