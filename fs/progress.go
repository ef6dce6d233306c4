package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/wikifetch"
)

// ProgressCacheName is the file name of the progress cache inside the
// result directory.
const ProgressCacheName = ".progress_cache.txt"

// DefaultSampleSize is how many cached keys are checked against the store
// before the cache is trusted.
const DefaultSampleSize = 5

// Ensure ProgressIndex implements wikifetch.ProgressIndex at compile time.
var _ wikifetch.ProgressIndex = (*ProgressIndex)(nil)

// ProgressIndex implements wikifetch.ProgressIndex on top of a ResultStore.
// The fast path reads a newline-delimited key cache and spot-checks it; the
// slow path scans every result file.
type ProgressIndex struct {
	store *ResultStore

	// Strategy selects whether the cache is consulted on Load.
	Strategy wikifetch.ResumeStrategy

	// SampleSize is the number of cached keys verified on Load.
	SampleSize int

	// Logger receives warnings about skipped files and cache misses.
	Logger *slog.Logger
}

// NewProgressIndex creates a ProgressIndex for the store using the
// cache-then-scan strategy.
func NewProgressIndex(store *ResultStore) *ProgressIndex {
	return &ProgressIndex{
		store:      store,
		Strategy:   wikifetch.ResumeCacheThenScan,
		SampleSize: DefaultSampleSize,
		Logger:     slog.New(slog.DiscardHandler),
	}
}

// CachePath returns the path of the progress cache file.
func (p *ProgressIndex) CachePath() string {
	return filepath.Join(p.store.Dir(), ProgressCacheName)
}

// Load returns the keys that have a persisted result.
func (p *ProgressIndex) Load(ctx context.Context) (wikifetch.KeySet, error) {
	if p.Strategy != wikifetch.ResumeScanOnly {
		if keys, ok := p.loadCache(ctx); ok {
			p.Logger.Info("progress loaded from cache", "keys", len(keys))
			return keys, nil
		}
	}

	keys, err := p.Reconcile(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.Persist(ctx, keys); err != nil {
		p.Logger.Warn("could not write progress cache", "path", p.CachePath(), "err", err)
	}
	return keys, nil
}

// Reconcile rebuilds the key set by scanning every result file. Files that
// are truncated or unparseable, lack the key or status field, hold a key
// other than their file name, or carry an unknown status are skipped with
// a warning and left untouched.
func (p *ProgressIndex) Reconcile(ctx context.Context) (wikifetch.KeySet, error) {
	p.Logger.Info("scanning results", "dir", p.store.Dir())

	keys := make(wikifetch.KeySet)
	var skipped int
	err := p.store.walk(ctx, func(name string, data []byte, err error) error {
		if err != nil {
			p.Logger.Warn("skipping unreadable result", "file", name, "err", err)
			skipped++
			return nil
		}

		var head struct {
			Key    *string `json:"key"`
			Status *string `json:"status"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			p.Logger.Warn("skipping corrupted result", "file", name, "err", err)
			skipped++
			return nil
		}
		if head.Key == nil || *head.Key == "" || head.Status == nil {
			p.Logger.Warn("skipping result missing required fields", "file", name)
			skipped++
			return nil
		}
		// The file name is what HasResult and resume check, so it must agree
		// with the content.
		if key := strings.TrimSuffix(name, ResultExt); *head.Key != key {
			p.Logger.Warn("skipping result stored under another key", "file", name, "key", *head.Key)
			skipped++
			return nil
		}
		if !wikifetch.Status(*head.Status).Valid() {
			p.Logger.Warn("skipping result with unknown status", "file", name, "status", *head.Status)
			skipped++
			return nil
		}

		keys.Add(*head.Key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.Logger.Info("scan complete", "keys", len(keys), "skipped", skipped)
	return keys, nil
}

// Persist writes keys to the progress cache, sorted, one per line.
func (p *ProgressIndex) Persist(ctx context.Context, keys wikifetch.KeySet) error {
	data := []byte(strings.Join(keys.Sorted(), "\n"))
	return writeFileAtomic(p.CachePath(), data, p.store.rename)
}

// loadCache reads and validates the cache. It reports false when the cache
// is absent, unreadable, empty, or fails validation.
func (p *ProgressIndex) loadCache(ctx context.Context) (wikifetch.KeySet, bool) {
	data, err := os.ReadFile(p.CachePath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, false
	} else if err != nil {
		p.Logger.Warn("could not read progress cache, rebuilding", "path", p.CachePath(), "err", err)
		return nil, false
	}

	keys := make(wikifetch.KeySet)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if key := strings.TrimSpace(scanner.Text()); key != "" {
			keys.Add(key)
		}
	}
	if err := scanner.Err(); err != nil {
		p.Logger.Warn("could not parse progress cache, rebuilding", "path", p.CachePath(), "err", err)
		return nil, false
	}

	// An empty cache says nothing about what is on disk.
	if len(keys) == 0 {
		return nil, false
	}

	for _, key := range sample(keys.Sorted(), p.SampleSize) {
		if !p.store.HasResult(ctx, key) {
			p.Logger.Warn("progress cache validation failed, rebuilding", "missing", key)
			return nil, false
		}
	}
	return keys, true
}

// sample picks up to n keys spread evenly over sorted keys.
func sample(keys []string, n int) []string {
	if n <= 0 {
		n = DefaultSampleSize
	}
	if len(keys) <= n {
		return keys
	}
	if n == 1 {
		return keys[:1]
	}

	out := make([]string, 0, n)
	step := float64(len(keys)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, keys[int(float64(i)*step+0.5)])
	}
	return out
}
