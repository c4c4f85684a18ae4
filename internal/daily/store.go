package daily

import (
	"context"
	"database/sql"
)

// Result records that a player cleared the daily layout.
type Result struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult stores the first completion of the day; repeats are ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, elapsed_ms) VALUES(?,?,?)`,
		r.UserID, r.Date, r.ElapsedMs,
	)
	return err
}
