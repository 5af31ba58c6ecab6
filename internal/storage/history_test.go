package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestHistoryRecordAndRecent(t *testing.T) {
	h, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"game_a", "game_b", "game_c"} {
		err := h.Record(ctx, Result{
			MatchID:    id,
			Winner:     i % 2,
			Loser:      (i + 1) % 2,
			Weapon:     "Laser",
			Damage:     50,
			Shots:      i + 3,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record %s failed: %v", id, err)
		}
	}

	results, err := h.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].MatchID != "game_c" || results[1].MatchID != "game_b" {
		t.Errorf("expected newest first, got %s, %s", results[0].MatchID, results[1].MatchID)
	}
	if results[0].Shots != 5 || results[0].Weapon != "Laser" || results[0].Winner != 0 {
		t.Errorf("unexpected row %+v", results[0])
	}
	if !results[0].FinishedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("unexpected finish time %v", results[0].FinishedAt)
	}
}

func TestHistoryFileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := h.Record(context.Background(), Result{MatchID: "game_x", FinishedAt: time.Now()}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	h.Close()

	h, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer h.Close()

	results, err := h.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(results) != 1 || results[0].MatchID != "game_x" {
		t.Errorf("expected game_x after reopen, got %+v", results)
	}
}
