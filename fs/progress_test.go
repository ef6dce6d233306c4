package fs_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/wikifetch"
	"github.com/fwojciec/wikifetch/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Story: Progress Reconciliation
// The index is rebuilt from the result files whenever the cache cannot be trusted.

func TestProgressIndex_ReconcileSkipsCorruptFiles(t *testing.T) {
	t.Parallel()

	// Given a store with three valid results and six corrupted files
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutResult(ctx, foundResult("Q1", "Alice Smith")))
	require.NoError(t, store.PutResult(ctx, notFoundResult("Q2", "Bob Jones")))
	require.NoError(t, store.PutResult(ctx, foundResult("Q3", "Carol White")))

	corrupt := map[string][]byte{
		"Q4.json": []byte(`{"key": "Q4", "status": "fo`),
		"Q5.json": []byte(`{}`),
		"Q6.json": []byte(`{"display_name": "No Key", "status": "found"}`),
		"Q7.json": []byte(`{"key": "Q7", "display_name": "No Status"}`),
		"Q8.json": []byte(`{"key": "Q9", "display_name": "Other Key", "status": "found"}`),
		"Q0.json": []byte(`{"key": "Q0", "display_name": "Odd Status", "status": "no_wikipedia"}`),
	}
	for name, data := range corrupt {
		require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), name), data, 0644))
	}

	var logs bytes.Buffer
	index := fs.NewProgressIndex(store)
	index.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	// When I load the index
	keys, err := index.Load(ctx)

	// Then exactly the valid keys are returned
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, keys.Sorted())

	// And the corrupted files are untouched
	for name, data := range corrupt {
		got, err := os.ReadFile(filepath.Join(store.Dir(), name))
		require.NoError(t, err)
		assert.Equal(t, data, got, name)
	}

	// And each skip was logged
	assert.Contains(t, logs.String(), "Q4.json")
	assert.Contains(t, logs.String(), "Q5.json")
	assert.Contains(t, logs.String(), "Q6.json")
	assert.Contains(t, logs.String(), "Q7.json")
	assert.Contains(t, logs.String(), "Q8.json")
	assert.Contains(t, logs.String(), "Q0.json")

	// And no key without its own result file is indexed
	for _, key := range keys.Sorted() {
		assert.True(t, store.HasResult(ctx, key), key)
	}
}

func TestProgressIndex_ReconcileIgnoresHiddenAndForeignFiles(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutResult(ctx, foundResult("Q1", "Alice Smith")))

	// A temp file left by a crash, the checkpoint, and an unrelated file.
	dir := store.Dir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".Q2.json.123.tmp"), []byte(`{"key": "Q2", "status": "found"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fs.CheckpointName), []byte(`{"stats": {}}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello world"), 0644))

	keys, err := fs.NewProgressIndex(store).Reconcile(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"Q1"}, keys.Sorted())
}

func TestProgressIndex_WritesCacheAfterScan(t *testing.T) {
	t.Parallel()

	// Given a store with results and no cache
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutResult(ctx, foundResult("Q2", "Bob Jones")))
	require.NoError(t, store.PutResult(ctx, foundResult("Q1", "Alice Smith")))
	index := fs.NewProgressIndex(store)

	// When I load the index
	_, err := index.Load(ctx)
	require.NoError(t, err)

	// Then the cache lists the keys, sorted, one per line
	data, err := os.ReadFile(index.CachePath())
	require.NoError(t, err)
	assert.Equal(t, "Q1\nQ2", string(data))
}

// Story: Progress Cache
// A cache that passes the spot check is trusted without scanning.

func TestProgressIndex_UsesValidCache(t *testing.T) {
	t.Parallel()

	// Given a cache whose keys all have results
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutResult(ctx, foundResult("Q1", "Alice Smith")))
	require.NoError(t, store.PutResult(ctx, foundResult("Q2", "Bob Jones")))
	index := fs.NewProgressIndex(store)
	require.NoError(t, index.Persist(ctx, wikifetch.NewKeySet("Q1", "Q2")))

	// And a result file the cache does not know about
	require.NoError(t, store.PutResult(ctx, foundResult("Q3", "Carol White")))

	// When I load the index
	keys, err := index.Load(ctx)

	// Then the cached keys are returned without a scan
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, keys.Sorted())
}

func TestProgressIndex_RebuildsStaleCache(t *testing.T) {
	t.Parallel()

	// Given a cache naming a key whose result file is gone
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutResult(ctx, foundResult("Q1", "Alice Smith")))
	index := fs.NewProgressIndex(store)
	require.NoError(t, index.Persist(ctx, wikifetch.NewKeySet("Q1", "Q9")))

	// When I load the index
	keys, err := index.Load(ctx)

	// Then the scan result replaces the cache
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1"}, keys.Sorted())

	data, err := os.ReadFile(index.CachePath())
	require.NoError(t, err)
	assert.Equal(t, "Q1", string(data))
}

func TestProgressIndex_EmptyCacheFallsBackToScan(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutResult(ctx, foundResult("Q1", "Alice Smith")))
	index := fs.NewProgressIndex(store)
	require.NoError(t, os.WriteFile(index.CachePath(), []byte("\n\n"), 0644))

	keys, err := index.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"Q1"}, keys.Sorted())
}

func TestProgressIndex_ScanOnlyIgnoresCache(t *testing.T) {
	t.Parallel()

	// Given a cache that would pass validation
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutResult(ctx, foundResult("Q1", "Alice Smith")))
	require.NoError(t, store.PutResult(ctx, foundResult("Q2", "Bob Jones")))
	index := fs.NewProgressIndex(store)
	require.NoError(t, index.Persist(ctx, wikifetch.NewKeySet("Q1")))

	// When I load with the scan-only strategy
	index.Strategy = wikifetch.ResumeScanOnly
	keys, err := index.Load(ctx)

	// Then every result on disk is found
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, keys.Sorted())
}

func TestProgressIndex_SamplesAcrossCache(t *testing.T) {
	t.Parallel()

	// Given a large cache where only the last key is missing on disk
	store := newStore(t)
	ctx := context.Background()
	keys := wikifetch.NewKeySet()
	for _, k := range []string{"Q10", "Q11", "Q12", "Q13", "Q14", "Q15", "Q16", "Q17", "Q18", "Q19"} {
		keys.Add(k)
		if k != "Q19" {
			require.NoError(t, store.PutResult(ctx, foundResult(k, "Player "+k)))
		}
	}
	index := fs.NewProgressIndex(store)
	require.NoError(t, index.Persist(ctx, keys))

	// When I load the index
	got, err := index.Load(ctx)

	// Then the spot check catches the gap and the scan wins
	require.NoError(t, err)
	assert.Len(t, got, 9)
	assert.False(t, got.Has("Q19"))
}

func TestProgressIndex_LoadEmptyDirectory(t *testing.T) {
	t.Parallel()

	keys, err := fs.NewProgressIndex(newStore(t)).Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, keys)
}
