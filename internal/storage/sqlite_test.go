package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "state", "nowcard.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteGetSetDelete(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "cover|a|b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty db error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "cover|a|b", `{"url":"x"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "cover|a|b", `{"url":"y"}`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := s.Get(ctx, "cover|a|b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `{"url":"y"}` {
		t.Errorf("expected overwritten value, got %q", got)
	}

	if err := s.Delete(ctx, "cover|a|b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "cover|a|b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nowcard.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if got, err := s.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}

func TestSQLitePlaysNewestFirstAndTrimmed(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		p := Play{
			Key:        fmt.Sprintf("artist|track %d", i),
			Artist:     "Artist",
			Track:      fmt.Sprintf("Track %d", i),
			ObservedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AppendPlay(ctx, p, 3); err != nil {
			t.Fatalf("AppendPlay %d: %v", i, err)
		}
	}

	plays, err := s.RecentPlays(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPlays: %v", err)
	}
	if len(plays) != 3 {
		t.Fatalf("expected 3 plays after trim, got %d", len(plays))
	}
	if plays[0].Track != "Track 4" || plays[2].Track != "Track 2" {
		t.Errorf("unexpected order: %+v", plays)
	}
	if !plays[0].ObservedAt.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("ObservedAt = %v", plays[0].ObservedAt)
	}

	limited, err := s.RecentPlays(ctx, 1)
	if err != nil {
		t.Fatalf("RecentPlays(1): %v", err)
	}
	if len(limited) != 1 || limited[0].Track != "Track 4" {
		t.Errorf("RecentPlays(1) = %+v", limited)
	}
}

func TestNopStore(t *testing.T) {
	var s Nop
	ctx := context.Background()
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Nop.Get error = %v, want ErrNotFound", err)
	}
	plays, err := s.RecentPlays(ctx, 5)
	if err != nil || len(plays) != 0 {
		t.Fatalf("Nop.RecentPlays = %v, %v", plays, err)
	}
}
