package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/wikifetch"
)

// Compile-time interface verification.
var _ wikifetch.ResultCatalog = (*ResultService)(nil)

// ResultService implements wikifetch.ResultCatalog using SQLite.
type ResultService struct {
	db *DB
}

// NewResultService creates a new ResultService.
func NewResultService(db *DB) *ResultService {
	return &ResultService{db: db}
}

// UpsertResult inserts the result or replaces the one with the same key.
func (s *ResultService) UpsertResult(ctx context.Context, result *wikifetch.FetchResult) error {
	if err := result.Validate(); err != nil {
		return err
	}

	attempted, err := json.Marshal(nonNil(result.AttemptedTitles))
	if err != nil {
		return fmt.Errorf("failed to encode attempted titles: %w", err)
	}

	var doc wikifetch.Document
	var docFetchedAt string
	if result.Document != nil {
		doc = *result.Document
		docFetchedAt = formatTime(doc.FetchedAt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO results (key, display_name, status, source_id, title, url, body, body_length,
			revision, content_hash, document_fetched_at, attempted_titles, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			display_name = excluded.display_name,
			status = excluded.status,
			source_id = excluded.source_id,
			title = excluded.title,
			url = excluded.url,
			body = excluded.body,
			body_length = excluded.body_length,
			revision = excluded.revision,
			content_hash = excluded.content_hash,
			document_fetched_at = excluded.document_fetched_at,
			attempted_titles = excluded.attempted_titles,
			fetched_at = excluded.fetched_at
	`, result.Key, result.DisplayName, string(result.Status), doc.SourceID, doc.Title, doc.URL,
		doc.Body, result.BodyLength(), doc.Revision, doc.ContentHash, docFetchedAt,
		string(attempted), formatTime(result.FetchedAt)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM result_fields WHERE result_key = ?`, result.Key); err != nil {
		return err
	}
	for name, value := range result.CarriedFields {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO result_fields (result_key, name, value) VALUES (?, ?, ?)
		`, result.Key, name, value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindResults retrieves results matching the filter, ordered by key.
func (s *ResultService) FindResults(ctx context.Context, filter wikifetch.ResultFilter) ([]*wikifetch.FetchResult, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT key, display_name, status, source_id, title, url, body, revision,
		content_hash, document_fetched_at, attempted_titles, fetched_at FROM results WHERE 1=1`)

	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Category != nil {
		field := filter.CategoryField
		if field == "" {
			field = wikifetch.DefaultCategoryField
		}
		if *filter.Category == "" {
			query.WriteString(" AND NOT EXISTS (SELECT 1 FROM result_fields f WHERE f.result_key = results.key AND f.name = ? AND f.value <> '')")
			args = append(args, field)
		} else {
			query.WriteString(" AND EXISTS (SELECT 1 FROM result_fields f WHERE f.result_key = results.key AND f.name = ? AND f.value = ?)")
			args = append(args, field, *filter.Category)
		}
	}

	query.WriteString(" ORDER BY key ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*wikifetch.FetchResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, result := range results {
		if result.CarriedFields, err = s.findFields(ctx, result.Key); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// CountResults returns the number of results per status.
func (s *ResultService) CountResults(ctx context.Context) (map[wikifetch.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM results GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[wikifetch.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[wikifetch.Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *ResultService) findFields(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM result_fields WHERE result_key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		fields[name] = value
	}
	return fields, rows.Err()
}

func scanResult(rows *sql.Rows) (*wikifetch.FetchResult, error) {
	var result wikifetch.FetchResult
	var doc wikifetch.Document
	var status, docFetchedAt, attempted, fetchedAt string

	if err := rows.Scan(&result.Key, &result.DisplayName, &status, &doc.SourceID, &doc.Title,
		&doc.URL, &doc.Body, &doc.Revision, &doc.ContentHash, &docFetchedAt, &attempted, &fetchedAt); err != nil {
		return nil, err
	}

	result.Status = wikifetch.Status(status)
	if err := json.Unmarshal([]byte(attempted), &result.AttemptedTitles); err != nil {
		return nil, fmt.Errorf("failed to decode attempted titles: %w", err)
	}

	var err error
	if result.FetchedAt, err = parseTime(fetchedAt, "fetched_at"); err != nil {
		return nil, err
	}
	if result.Status == wikifetch.StatusFound {
		if doc.FetchedAt, err = parseTime(docFetchedAt, "document_fetched_at"); err != nil {
			return nil, err
		}
		result.Document = &doc
	}

	return &result, nil
}
