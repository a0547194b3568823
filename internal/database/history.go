package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/model"
)

// HistoryRecord is one finished resolution.
type HistoryRecord struct {
	ID         int64
	Raw        string
	Normalized string
	Kind       string
	Status     string
	Strategy   string
	Target     string
	Cached     bool
	ResolvedAt time.Time
	Attempts   []model.Attempt
}

// HistoryQuery filters History.
type HistoryQuery struct {
	// Address limits records to one normalized address when set.
	Address string

	// Limit caps the number of records. Zero means 50.
	Limit int
}

// StrategyStat counts attempts and successes of one strategy.
type StrategyStat struct {
	Strategy  string
	Attempts  int
	Successes int
	Timeouts  int
}

// RecordResolution stores result and its attempts in one transaction and
// returns the new history ID.
func (s *Store) RecordResolution(ctx context.Context, result model.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO history (raw, normalized, kind, status, strategy, target, cached, resolved_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.Address.Raw,
		result.Address.Normalized,
		result.Address.Kind.String(),
		result.Status.String(),
		result.Strategy,
		result.Target,
		boolToInt(result.Cached),
		formatTimestamp(result.ResolvedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read history id: %w", err)
	}

	// Cache hits repeat the attempts of the original cascade; only the
	// cascade itself owns them.
	if !result.Cached {
		for i, a := range result.Attempts {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO attempts (history_id, seq, strategy, success, timed_out, locator, reason, started_at, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				id, i, a.Strategy, boolToInt(a.Success), boolToInt(a.TimedOut),
				a.Locator, a.Reason, formatTimestamp(a.Start), int64(a.Duration),
			)
			if err != nil {
				return 0, fmt.Errorf("failed to insert attempt: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit history: %w", err)
	}
	return id, nil
}

// History returns finished resolutions, newest first, with their attempts.
func (s *Store) History(ctx context.Context, q HistoryQuery) ([]HistoryRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, raw, normalized, kind, status, strategy, target, cached, resolved_at
	FROM history
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if q.Address != "" {
		query += " AND normalized = ?"
		args = append(args, q.Address)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	var records []HistoryRecord
	for rows.Next() {
		var (
			rec              HistoryRecord
			strategy, target *string
			cached           int
			resolvedAt       string
		)
		if err := rows.Scan(&rec.ID, &rec.Raw, &rec.Normalized, &rec.Kind, &rec.Status,
			&strategy, &target, &cached, &resolvedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if strategy != nil {
			rec.Strategy = *strategy
		}
		if target != nil {
			rec.Target = *target
		}
		rec.Cached = cached != 0
		rec.ResolvedAt = parseTimestamp(resolvedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	_ = rows.Close()

	for i := range records {
		attempts, err := s.attempts(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Attempts = attempts
	}
	return records, nil
}

func (s *Store) attempts(ctx context.Context, historyID int64) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT strategy, success, timed_out, locator, reason, started_at, duration_ns
	FROM attempts
	WHERE history_id = ?
	ORDER BY seq
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var (
			a                 model.Attempt
			success, timedOut int
			locator, reason   *string
			startedAt         string
			durationNS        int64
		)
		if err := rows.Scan(&a.Strategy, &success, &timedOut, &locator, &reason, &startedAt, &durationNS); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Success = success != 0
		a.TimedOut = timedOut != 0
		if locator != nil {
			a.Locator = *locator
		}
		if reason != nil {
			a.Reason = *reason
		}
		a.Start = parseTimestamp(startedAt)
		a.Duration = time.Duration(durationNS)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// StrategyStats aggregates attempts per strategy, most attempted first.
func (s *Store) StrategyStats(ctx context.Context) ([]StrategyStat, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT strategy, COUNT(*), SUM(success), SUM(timed_out)
	FROM attempts
	GROUP BY strategy
	ORDER BY COUNT(*) DESC, strategy
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy stats: %w", err)
	}
	defer rows.Close()

	var stats []StrategyStat
	for rows.Next() {
		var st StrategyStat
		if err := rows.Scan(&st.Strategy, &st.Attempts, &st.Successes, &st.Timeouts); err != nil {
			return nil, fmt.Errorf("failed to scan strategy stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// PruneHistory deletes history older than before and returns the number of
// resolutions removed.
func (s *Store) PruneHistory(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE resolved_at < ?`, formatTimestamp(before))
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// HistoryRecorder writes every finished resolution to a Store.
// It satisfies the resolver's observer interface.
type HistoryRecorder struct {
	store   *Store
	logger  *slog.Logger
	timeout time.Duration
}

// NewHistoryRecorder creates a HistoryRecorder. Write failures are logged,
// never returned.
func NewHistoryRecorder(store *Store, logger *slog.Logger) *HistoryRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryRecorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// ObserveAttempt is a no-op; attempts are written with their result.
func (h *HistoryRecorder) ObserveAttempt(address.Address, model.Attempt) {}

// ObserveSkip is a no-op.
func (h *HistoryRecorder) ObserveSkip(address.Address, string) {}

// ObserveResult records result.
func (h *HistoryRecorder) ObserveResult(result model.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if _, err := h.store.RecordResolution(ctx, result); err != nil {
		h.logger.Warn("failed to record resolution history",
			"address", result.Address.Normalized,
			"error", err,
		)
	}
}
