package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/waypoint/internal/cache"
	"github.com/nao1215/waypoint/internal/model"
)

// CachedResolution is a row of the resolutions table without its payload.
type CachedResolution struct {
	Key        string
	Strategy   string
	Target     string
	InsertedAt time.Time
}

// LoadResolution returns the stored entry for key, or nil when none exists.
func (s *Store) LoadResolution(ctx context.Context, key string) (*cache.Entry, error) {
	query := `SELECT result_json, inserted_at FROM resolutions WHERE cache_key = ?`

	var resultJSON, insertedAt string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&resultJSON, &insertedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load resolution: %w", err)
	}

	var res model.Result
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return nil, fmt.Errorf("failed to parse resolution: %w", err)
	}

	return &cache.Entry{
		Result:     res,
		InsertedAt: parseTimestamp(insertedAt),
	}, nil
}

// SaveResolution stores entry under key, replacing any previous entry.
// Entries that are not resolved are ignored.
func (s *Store) SaveResolution(ctx context.Context, key string, entry cache.Entry) error {
	if !entry.Result.Resolved() {
		return nil
	}

	resultJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to serialize resolution: %w", err)
	}

	query := `
	INSERT INTO resolutions (cache_key, strategy, target, result_json, inserted_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(cache_key) DO UPDATE SET
		strategy = excluded.strategy,
		target = excluded.target,
		result_json = excluded.result_json,
		inserted_at = excluded.inserted_at
	`
	_, err = s.db.ExecContext(ctx, query,
		key,
		entry.Result.Strategy,
		entry.Result.Target,
		string(resultJSON),
		formatTimestamp(entry.InsertedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save resolution: %w", err)
	}
	return nil
}

// DeleteResolution removes the entry for key.
func (s *Store) DeleteResolution(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resolutions WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete resolution: %w", err)
	}
	return nil
}

// PurgeResolutions removes every cached entry. History is kept.
func (s *Store) PurgeResolutions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resolutions`); err != nil {
		return fmt.Errorf("failed to purge resolutions: %w", err)
	}
	return nil
}

// ListResolutions returns the stored entries, newest first.
func (s *Store) ListResolutions(ctx context.Context) ([]CachedResolution, error) {
	query := `
	SELECT cache_key, strategy, target, inserted_at
	FROM resolutions
	ORDER BY inserted_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	var list []CachedResolution
	for rows.Next() {
		var (
			c          CachedResolution
			insertedAt string
		)
		if err := rows.Scan(&c.Key, &c.Strategy, &c.Target, &insertedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		c.InsertedAt = parseTimestamp(insertedAt)
		list = append(list, c)
	}
	return list, rows.Err()
}
