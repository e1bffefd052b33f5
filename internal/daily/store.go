// internal/daily/store.go
//
// Persistence for Daily Challenge results (daily_results table).
// Responsibilities:
//   - One result per player per day (INSERT OR IGNORE on user_id, date).
//   - Played check before a new daily session is handed out.
//   - Leaderboard: fastest wins first, fewer misses breaks ties.

package daily

import (
	"context"
	"database/sql"
)

// Result is one player's winning run of a daily challenge.
type Result struct {
	UserID       string `json:"userId"`
	Date         string `json:"date"`
	MessageIndex int    `json:"messageIndex"`
	Misses       int    `json:"misses"`
	ElapsedMs    int    `json:"elapsedMs"`
}

// Store reads and writes daily results.
type Store struct{ db *sql.DB }

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether userID has a result recorded for date.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?`,
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r; a second result for the same user and date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, message_index, misses, elapsed_ms)
		 VALUES(?,?,?,?,?)`, r.UserID, r.Date, r.MessageIndex, r.Misses, r.ElapsedMs,
	)
	return err
}

// LBRow is one leaderboard entry.
type LBRow struct {
	UserID    string `json:"userId"`
	Misses    int    `json:"misses"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Leaderboard returns the fastest runs for date (fewest misses breaks ties).
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, misses, elapsed_ms
		 FROM daily_results
		 WHERE date=?
		 ORDER BY elapsed_ms ASC, misses ASC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Misses, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
