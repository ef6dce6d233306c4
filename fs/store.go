package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fwojciec/wikifetch"
)

// ResultExt is the file extension of persisted results.
const ResultExt = ".json"

// MinResultSize is the size in bytes below which a result file is treated
// as truncated.
const MinResultSize = 10

// Ensure ResultStore implements the result interfaces at compile time.
var (
	_ wikifetch.ResultStore  = (*ResultStore)(nil)
	_ wikifetch.ResultFinder = (*ResultStore)(nil)
)

// ResultStore implements wikifetch.ResultStore with one JSON file per key.
// Each write goes to a temp file in the same directory and is renamed into
// place, so readers see either the previous file or the new one.
type ResultStore struct {
	dir    string
	locks  sync.Map // key -> *sync.Mutex
	rename renameFunc
}

// NewResultStore creates a new ResultStore rooted at dir.
// Call Open before use to create and verify the directory.
func NewResultStore(dir string) *ResultStore {
	return &ResultStore{
		dir:    dir,
		rename: os.Rename,
	}
}

// Open creates the directory if needed and checks that it is writable.
func (s *ResultStore) Open() error {
	if strings.TrimSpace(s.dir) == "" {
		return wikifetch.Errorf(wikifetch.EINVALID, "output directory required")
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat output directory: %w", err)
	}
	if !info.IsDir() {
		return wikifetch.Errorf(wikifetch.EINVALID, "output path %q is not a directory", s.dir)
	}

	probe, err := os.CreateTemp(s.dir, ".writable-*")
	if err != nil {
		return fmt.Errorf("output directory is not writable: %w", err)
	}
	_ = probe.Close()
	return os.Remove(probe.Name())
}

// Dir returns the directory holding the result files.
func (s *ResultStore) Dir() string {
	return s.dir
}

// Path returns the file path of the result for key.
func (s *ResultStore) Path(key string) string {
	return filepath.Join(s.dir, key+ResultExt)
}

// PutResult writes the result atomically, replacing any previous result
// for the same key. Writes for the same key are serialized.
func (s *ResultStore) PutResult(ctx context.Context, result *wikifetch.FetchResult) error {
	if err := result.Validate(); err != nil {
		return err
	}
	if err := validateKey(result.Key); err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result %q: %w", result.Key, err)
	}

	unlock := s.lock(result.Key)
	defer unlock()

	if err := writeFileAtomic(s.Path(result.Key), data, s.rename); err != nil {
		return fmt.Errorf("save result %q: %w", result.Key, err)
	}
	return nil
}

// FindResult reads the result for key.
// Returns ENOTFOUND if there is no result file and EINVALID if the file is
// not a valid result.
func (s *ResultStore) FindResult(ctx context.Context, key string) (*wikifetch.FetchResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, wikifetch.Errorf(wikifetch.ENOTFOUND, "result %q not found", key)
	} else if err != nil {
		return nil, err
	}
	return decodeResult(key+ResultExt, data)
}

// HasResult reports whether a result file exists for key.
func (s *ResultStore) HasResult(ctx context.Context, key string) bool {
	if validateKey(key) != nil {
		return false
	}
	info, err := os.Stat(s.Path(key))
	return err == nil && info.Mode().IsRegular()
}

// FindResults reads every valid result file matching the filter, ordered by
// key. Unreadable or invalid files are skipped.
func (s *ResultStore) FindResults(ctx context.Context, filter wikifetch.ResultFilter) ([]*wikifetch.FetchResult, error) {
	var results []*wikifetch.FetchResult
	err := s.walk(ctx, func(name string, data []byte, err error) error {
		if err != nil {
			return nil
		}
		r, err := decodeResult(name, data)
		if err != nil {
			return nil
		}
		if filter.Match(r) {
			results = append(results, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return nil, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(results) {
		results = results[:filter.Limit]
	}
	return results, nil
}

// walk calls fn for every candidate result file in the directory, in name
// order. Hidden files (temp files, the cache and the checkpoint) are not
// candidates. fn receives the file content, or the error that prevented
// reading a usable file. Returning an error from fn stops the walk.
func (s *ResultStore) walk(ctx context.Context, fn func(name string, data []byte, err error) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ResultExt) {
			continue
		}

		path := filepath.Join(s.dir, name)
		info, err := entry.Info()
		if err != nil {
			if err := fn(name, nil, err); err != nil {
				return err
			}
			continue
		}
		if info.Size() < MinResultSize {
			if err := fn(name, nil, wikifetch.Errorf(wikifetch.EINVALID, "%s is suspiciously small (%d bytes)", name, info.Size())); err != nil {
				return err
			}
			continue
		}

		data, readErr := os.ReadFile(path)
		if err := fn(name, data, readErr); err != nil {
			return err
		}
	}
	return nil
}

func (s *ResultStore) lock(key string) func() {
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// decodeResult parses and validates a result file.
func decodeResult(name string, data []byte) (*wikifetch.FetchResult, error) {
	var r wikifetch.FetchResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, wikifetch.Errorf(wikifetch.EINVALID, "%s is corrupted: %v", name, err)
	}
	if err := r.Validate(); err != nil {
		return nil, wikifetch.Errorf(wikifetch.EINVALID, "%s: %s", name, wikifetch.ErrorMessage(err))
	}
	return &r, nil
}

// validateKey rejects keys that cannot safely be used as a file name.
func validateKey(key string) error {
	if key == "" {
		return wikifetch.Errorf(wikifetch.EINVALID, "result key required")
	}
	if strings.ContainsAny(key, `/\`) || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return wikifetch.Errorf(wikifetch.EINVALID, "key %q cannot be used as a file name", key)
	}
	return nil
}
