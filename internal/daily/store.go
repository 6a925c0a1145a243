package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily jumble.
type Result struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	Attempts  int    `json:"attempts"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// LBRow is a leaderboard entry.
type LBRow struct {
	UserID    string `json:"userId"`
	Attempts  int    `json:"attempts"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Store persists daily results. UNIQUE(user_id, date) keeps the first result.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?`,
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r; a second result for the same player and date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, attempts, elapsed_ms)
         VALUES(?,?,?,?)`, r.UserID, r.Date, r.Attempts, r.ElapsedMs,
	)
	return err
}

// Leaderboard returns the fastest players for date, ties broken by fewer attempts.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, attempts, elapsed_ms
         FROM daily_results
         WHERE date=?
         ORDER BY elapsed_ms ASC, attempts ASC, created_at ASC
         LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Attempts, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
