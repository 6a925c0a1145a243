package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalobadob/vocab-jumble/assets"
	"github.com/robalobadob/vocab-jumble/internal/database"
	"github.com/robalobadob/vocab-jumble/internal/game"
	"github.com/robalobadob/vocab-jumble/internal/jumble"
	"github.com/robalobadob/vocab-jumble/internal/vocab"
)

func newGame(t *testing.T, v *vocab.Vocab) *game.Game {
	t.Helper()
	g, err := game.New(v, 2, jumble.Generator{})
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	return g
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	v, _ := vocab.New([]string{"cat", "car", "art"})
	st := NewMemoryStore()

	g := newGame(t, v)
	if err := st.Save(ctx, g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Get(ctx, g.ID)
	if err != nil || got != g {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if n := st.Sweep(ctx, g.CreatedAt.Add(59*time.Second), time.Minute); n != 0 {
		t.Fatalf("Sweep removed %d fresh games", n)
	}
	if n := st.Sweep(ctx, g.CreatedAt.Add(2*time.Minute), time.Minute); n != 1 {
		t.Fatalf("Sweep removed %d games, want 1", n)
	}
	if _, err := st.Get(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("swept game still present")
	}
}

func TestSweepKeepsDailyGamesUntilMidnight(t *testing.T) {
	ctx := context.Background()
	v, _ := vocab.New([]string{"cat", "car", "art"})
	st := NewMemoryStore()

	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	g := newGame(t, v)
	g.Daily = "2026-03-14"
	g.CreatedAt = created
	if err := st.Save(ctx, g); err != nil {
		t.Fatal(err)
	}

	if n := st.Sweep(ctx, created.Add(3*time.Hour), time.Hour); n != 0 {
		t.Fatalf("Sweep removed %d daily games before the day ended", n)
	}
	if _, err := st.Get(ctx, g.ID); err != nil {
		t.Fatalf("daily game gone: %v", err)
	}
	if n := st.Sweep(ctx, time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC), time.Hour); n != 1 {
		t.Fatalf("Sweep removed %d games after midnight, want 1", n)
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1','alice','x','2026-01-01T00:00:00Z')`); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(db)
	v, _ := vocab.New([]string{"cat", "car", "art"})
	g := newGame(t, v)

	if err := h.Started(ctx, g.Snapshot(), g.CreatedAt, Owner{AnonID: "anon-1"}); err != nil {
		t.Fatalf("Started: %v", err)
	}
	for _, w := range v.List() {
		g.Apply(v, w)
	}
	if err := h.Progress(ctx, g.Snapshot()); err != nil {
		t.Fatalf("Progress: %v", err)
	}

	recs, err := h.Mine(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("user has %d games before claim", len(recs))
	}

	if err := h.Claim(ctx, "anon-1", "u1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	recs, err = h.Mine(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("Mine returned %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.ID != g.ID || r.Status != "won" || r.Matches != 2 || r.Target != 2 || r.FinishedAt == "" {
		t.Fatalf("unexpected record %+v", r)
	}
}
