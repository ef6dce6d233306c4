package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/wikifetch"
	"github.com/fwojciec/wikifetch/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkUpsertResult compares catalog write performance between WAL and
// rollback journal modes for a run that mirrors every result.
func BenchmarkUpsertResult(b *testing.B) {
	b.Run("rollback_journal", func(b *testing.B) {
		benchmarkUpserts(b, "DELETE")
	})

	b.Run("wal_mode", func(b *testing.B) {
		benchmarkUpserts(b, "WAL")
	})
}

func benchmarkUpserts(b *testing.B, journalMode string) {
	b.Helper()

	db := sqlite.NewDB(filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, db.Open())
	defer db.Close()

	ctx := context.Background()
	_, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+journalMode)
	require.NoError(b, err)

	svc := sqlite.NewResultService(db)
	body := strings.Repeat("Career text. ", 400)
	now := time.Now().UTC()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		result := &wikifetch.FetchResult{
			Key:             fmt.Sprintf("Q%d", i),
			DisplayName:     fmt.Sprintf("Player %d", i),
			Status:          wikifetch.StatusFound,
			Document:        &wikifetch.Document{SourceID: "1", Title: "Player", Body: body, FetchedAt: now},
			AttemptedTitles: []string{"Player"},
			FetchedAt:       now,
			CarriedFields:   map[string]string{"era": "modern", "club": "Arsenal"},
		}
		if err := svc.UpsertResult(ctx, result); err != nil {
			b.Fatal(err)
		}
	}
}
