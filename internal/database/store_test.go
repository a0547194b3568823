package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/cache"
	"github.com/nao1215/waypoint/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func resolvedResult(raw string) model.Result {
	return model.Result{
		Address:  address.Classify(raw),
		Status:   model.StatusResolved,
		Target:   "https://relay.example/?url=" + raw,
		Strategy: "proxy-relay",
		Kind:     model.ContentPage,
		Attempts: []model.Attempt{
			{Strategy: "direct", Start: time.Now(), Duration: time.Second, Reason: "timeout", TimedOut: true},
			{Strategy: "proxy-relay", Start: time.Now(), Duration: 200 * time.Millisecond, Success: true, Reason: "ok"},
		},
		ResolvedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		s, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if s.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", s.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		_ = s.Close()

		s, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = s.Close()
	})
}

// TestStore_Resolutions tests the cache backing table.
func TestStore_Resolutions(t *testing.T) {
	t.Parallel()

	t.Run("save and load round trip", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)
		res := resolvedResult("example.com")
		inserted := time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC)

		if err := s.SaveResolution(ctx, res.Address.Key(), cache.Entry{Result: res, InsertedAt: inserted}); err != nil {
			t.Fatalf("SaveResolution failed: %v", err)
		}

		got, err := s.LoadResolution(ctx, res.Address.Key())
		if err != nil {
			t.Fatalf("LoadResolution failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected entry")
		}
		if !got.InsertedAt.Equal(inserted) {
			t.Errorf("InsertedAt = %v, want %v", got.InsertedAt, inserted)
		}
		if got.Result.Target != res.Target || got.Result.Address.Kind != address.KindWeb || !got.Result.Resolved() {
			t.Errorf("Result = %+v", got.Result)
		}
		if len(got.Result.Attempts) != 2 || !got.Result.Attempts[0].TimedOut {
			t.Errorf("Attempts = %+v", got.Result.Attempts)
		}
	})

	t.Run("missing key returns nil", func(t *testing.T) {
		t.Parallel()

		got, err := setupTestDB(t).LoadResolution(context.Background(), "https://missing.example")
		if err != nil || got != nil {
			t.Errorf("got %+v, %v", got, err)
		}
	})

	t.Run("exhausted results are not stored", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)
		entry := cache.Entry{Result: model.Result{Status: model.StatusExhausted}, InsertedAt: time.Now()}
		if err := s.SaveResolution(ctx, "k", entry); err != nil {
			t.Fatalf("SaveResolution failed: %v", err)
		}
		if got, _ := s.LoadResolution(ctx, "k"); got != nil {
			t.Error("exhausted entry was stored")
		}
	})

	t.Run("save replaces, delete and purge remove", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)
		a, b := resolvedResult("a.example"), resolvedResult("b.example")
		for _, r := range []model.Result{a, a, b} {
			if err := s.SaveResolution(ctx, r.Address.Key(), cache.Entry{Result: r, InsertedAt: time.Now()}); err != nil {
				t.Fatalf("SaveResolution failed: %v", err)
			}
		}

		list, err := s.ListResolutions(ctx)
		if err != nil || len(list) != 2 {
			t.Fatalf("ListResolutions = %v, %v", list, err)
		}

		if err := s.DeleteResolution(ctx, a.Address.Key()); err != nil {
			t.Fatalf("DeleteResolution failed: %v", err)
		}
		if got, _ := s.LoadResolution(ctx, a.Address.Key()); got != nil {
			t.Error("deleted entry still present")
		}

		if err := s.PurgeResolutions(ctx); err != nil {
			t.Fatalf("PurgeResolutions failed: %v", err)
		}
		if list, _ := s.ListResolutions(ctx); len(list) != 0 {
			t.Errorf("entries after purge: %v", list)
		}
	})

	t.Run("backs a cache across instances", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)
		res := resolvedResult("example.com")
		cache.New(cache.WithBacking(s)).Put(ctx, res.Address.Key(), res)

		got, ok := cache.New(cache.WithBacking(s)).Get(ctx, res.Address.Key())
		if !ok || got.Target != res.Target {
			t.Errorf("got %+v, %v", got, ok)
		}
	})
}

// TestStore_History tests the resolution history.
func TestStore_History(t *testing.T) {
	t.Parallel()

	t.Run("records results with attempts", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)

		exhausted := model.Result{
			Address:    address.Classify("blocked.example"),
			Status:     model.StatusExhausted,
			Attempts:   []model.Attempt{{Strategy: "direct", Start: time.Now(), Reason: "refused"}},
			ResolvedAt: time.Now(),
		}
		for _, r := range []model.Result{resolvedResult("example.com"), exhausted} {
			if _, err := s.RecordResolution(ctx, r); err != nil {
				t.Fatalf("RecordResolution failed: %v", err)
			}
		}

		records, err := s.History(ctx, HistoryQuery{})
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("got %d records", len(records))
		}
		if records[0].Normalized != "https://blocked.example" || records[0].Status != "exhausted" {
			t.Errorf("newest record = %+v", records[0])
		}
		if records[1].Strategy != "proxy-relay" || len(records[1].Attempts) != 2 {
			t.Errorf("oldest record = %+v", records[1])
		}
		if records[1].Attempts[1].Duration != 200*time.Millisecond || !records[1].Attempts[1].Success {
			t.Errorf("attempt = %+v", records[1].Attempts[1])
		}
	})

	t.Run("filters by address and limits", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)
		for _, raw := range []string{"a.example", "b.example", "a.example", "a.example"} {
			if _, err := s.RecordResolution(ctx, resolvedResult(raw)); err != nil {
				t.Fatalf("RecordResolution failed: %v", err)
			}
		}

		records, err := s.History(ctx, HistoryQuery{Address: "https://a.example", Limit: 2})
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("got %d records, want 2", len(records))
		}
		for _, r := range records {
			if r.Normalized != "https://a.example" {
				t.Errorf("unexpected record %+v", r)
			}
		}
	})

	t.Run("cache hits keep no attempts", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)
		hit := resolvedResult("example.com")
		hit.Cached = true
		if _, err := s.RecordResolution(ctx, hit); err != nil {
			t.Fatalf("RecordResolution failed: %v", err)
		}

		records, _ := s.History(ctx, HistoryQuery{})
		if len(records) != 1 || !records[0].Cached || len(records[0].Attempts) != 0 {
			t.Errorf("records = %+v", records)
		}
	})

	t.Run("strategy stats aggregate attempts", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)
		for range 3 {
			if _, err := s.RecordResolution(ctx, resolvedResult("example.com")); err != nil {
				t.Fatalf("RecordResolution failed: %v", err)
			}
		}

		stats, err := s.StrategyStats(ctx)
		if err != nil {
			t.Fatalf("StrategyStats failed: %v", err)
		}
		if len(stats) != 2 {
			t.Fatalf("stats = %+v", stats)
		}
		for _, st := range stats {
			switch st.Strategy {
			case "direct":
				if st.Attempts != 3 || st.Successes != 0 || st.Timeouts != 3 {
					t.Errorf("direct = %+v", st)
				}
			case "proxy-relay":
				if st.Attempts != 3 || st.Successes != 3 {
					t.Errorf("proxy-relay = %+v", st)
				}
			default:
				t.Errorf("unexpected strategy %q", st.Strategy)
			}
		}
	})

	t.Run("prune removes old resolutions and their attempts", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestDB(t)
		old := resolvedResult("old.example")
		old.ResolvedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		for _, r := range []model.Result{old, resolvedResult("new.example")} {
			if _, err := s.RecordResolution(ctx, r); err != nil {
				t.Fatalf("RecordResolution failed: %v", err)
			}
		}

		n, err := s.PruneHistory(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		if err != nil || n != 1 {
			t.Fatalf("PruneHistory = %d, %v", n, err)
		}
		stats, _ := s.StrategyStats(ctx)
		for _, st := range stats {
			if st.Attempts != 1 {
				t.Errorf("attempts of pruned rows remain: %+v", st)
			}
		}
	})

	t.Run("recorder observes results", func(t *testing.T) {
		t.Parallel()

		s := setupTestDB(t)
		rec := NewHistoryRecorder(s, nil)
		rec.ObserveSkip(address.Classify("example.com"), "fragment")
		rec.ObserveResult(resolvedResult("example.com"))

		records, err := s.History(context.Background(), HistoryQuery{})
		if err != nil || len(records) != 1 {
			t.Errorf("records = %+v, %v", records, err)
		}
	})
}
