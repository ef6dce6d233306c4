package fs_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/wikifetch"
	"github.com/fwojciec/wikifetch/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointFile(t *testing.T) {
	t.Parallel()

	t.Run("overwrites previous checkpoint", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cf := fs.NewCheckpointFile(dir)
		ctx := context.Background()

		require.NoError(t, cf.WriteCheckpoint(ctx, &wikifetch.Checkpoint{
			RunID:          "run-1",
			Stats:          wikifetch.RunStats{Found: 1},
			ProcessedCount: 1,
			TotalCount:     10,
			Timestamp:      time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		}))
		require.NoError(t, cf.WriteCheckpoint(ctx, &wikifetch.Checkpoint{
			RunID:          "run-1",
			Stats:          wikifetch.RunStats{Found: 40, NotFound: 9, Errors: 1},
			ProcessedCount: 50,
			TotalCount:     10,
			Timestamp:      time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
		}))

		cp, err := cf.ReadCheckpoint(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50, cp.ProcessedCount)
		assert.Equal(t, wikifetch.RunStats{Found: 40, NotFound: 9, Errors: 1}, cp.Stats)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("uses the documented field names", func(t *testing.T) {
		t.Parallel()

		cf := fs.NewCheckpointFile(t.TempDir())
		require.NoError(t, cf.WriteCheckpoint(context.Background(), &wikifetch.Checkpoint{
			Stats:          wikifetch.RunStats{Found: 2, NotFound: 1},
			ProcessedCount: 3,
			TotalCount:     4,
		}))

		data, err := os.ReadFile(cf.Path())
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Contains(t, raw, "processed_count")
		assert.Contains(t, raw, "total_count")
		assert.Contains(t, raw, "timestamp")
		stats := raw["stats"].(map[string]any)
		assert.InDelta(t, 2, stats["found"], 0)
		assert.InDelta(t, 1, stats["not_found"], 0)
		assert.InDelta(t, 0, stats["errors"], 0)
	})

	t.Run("returns ENOTFOUND before first write", func(t *testing.T) {
		t.Parallel()

		_, err := fs.NewCheckpointFile(t.TempDir()).ReadCheckpoint(context.Background())

		assert.Equal(t, wikifetch.ENOTFOUND, wikifetch.ErrorCode(err))
	})
}
