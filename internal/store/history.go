// internal/store/history.go
//
// SQLite record of games played, used for "my recent games" and to attach
// anonymous play to an account after signup/login.
// Writes are best effort from the HTTP layer: a failed insert never blocks play.

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/robalobadob/vocab-jumble/internal/game"
)

// Owner identifies who started a game. Exactly one field is set.
type Owner struct {
	UserID string
	AnonID string
}

// Record is one row of the games table.
type Record struct {
	ID         string `json:"id"`
	Jumble     string `json:"jumble"`
	Target     int    `json:"target"`
	Matches    int    `json:"matches"`
	Status     string `json:"status"` // playing | won
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// History persists game records.
type History struct{ db *sql.DB }

// NewHistory wraps an open database that has the games table.
func NewHistory(db *sql.DB) *History { return &History{db: db} }

// Started inserts the row for a new game.
func (h *History) Started(ctx context.Context, s game.Snapshot, startedAt time.Time, o Owner) error {
	_, err := h.db.ExecContext(ctx, `
        INSERT INTO games (id, user_id, anonymous_id, jumble, target, matches, started_at, status)
        VALUES (?, ?, ?, ?, ?, 0, ?, 'playing')`,
		s.ID, nullable(o.UserID), nullable(o.AnonID), s.Jumble, s.Target,
		startedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Progress stores the match count and, once finished, the final status.
func (h *History) Progress(ctx context.Context, s game.Snapshot) error {
	if !s.Finished {
		_, err := h.db.ExecContext(ctx, `UPDATE games SET matches=? WHERE id=?`, len(s.Matches), s.ID)
		return err
	}
	_, err := h.db.ExecContext(ctx,
		`UPDATE games SET matches=?, status='won', finished_at=? WHERE id=? AND finished_at IS NULL`,
		len(s.Matches), time.Now().UTC().Format(time.RFC3339), s.ID,
	)
	return err
}

// Mine lists a user's most recent games, newest first.
func (h *History) Mine(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, `
        SELECT id, jumble, target, matches, status, started_at, COALESCE(finished_at, '')
        FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Jumble, &r.Target, &r.Matches, &r.Status, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Claim moves an anonymous player's games onto a user account.
func (h *History) Claim(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := h.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
