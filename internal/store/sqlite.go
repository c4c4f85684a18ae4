// internal/store/sqlite.go
//
// SQLite-backed history and preferences.
// Responsibilities:
//   - Users: create, look up, bump play/completion counters.
//   - Games: one row per (session, round) recording variant, progress and status.
//   - Sound settings: last saved volume controls per owner (user or anon id).
//
// Live board state is never written here.

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/robalobadob/memory-game/internal/sound"
)

// Game statuses recorded in the games table.
const (
	StatusPlaying   = "playing"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

var ErrUsernameTaken = errors.New("username taken")

// SQL wraps the database handle.
type SQL struct{ db *sql.DB }

func NewSQL(db *sql.DB) *SQL { return &SQL{db: db} }

// DB exposes the handle for packages with their own tables (daily).
func (s *SQL) DB() *sql.DB { return s.db }

// User matches the users table shape.
type User struct {
	ID             string
	Username       string
	PasswordHash   string
	CreatedAt      time.Time
	GamesPlayed    int
	GamesCompleted int
}

// CreateUser inserts a user, failing with ErrUsernameTaken on a
// case-insensitive collision.
func (s *SQL) CreateUser(ctx context.Context, id, username, passwordHash string) (*User, error) {
	var exists int
	_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, ErrUsernameTaken
	}
	now := time.Now().UTC().Truncate(time.Second)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, username, passwordHash, now.Format(time.RFC3339)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *SQL) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, games_completed
	                                  FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}

func (s *SQL) FindUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, games_completed
	                                  FROM users WHERE id=?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.GamesPlayed, &u.GamesCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// BumpStats counts a started game, and a completed one when completed is set.
func (s *SQL) BumpStats(ctx context.Context, userID string, started, completed bool) error {
	var p, c int
	if started {
		p = 1
	}
	if completed {
		c = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET games_played = games_played + ?, games_completed = games_completed + ? WHERE id=?`,
		p, c, userID)
	return err
}

// GameRow is one round of one session.
type GameRow struct {
	ID           string    `json:"id"`
	Round        uint64    `json:"round"`
	UserID       string    `json:"-"`
	AnonymousID  string    `json:"-"`
	Variant      string    `json:"variant"`
	PairCount    int       `json:"pairCount"`
	MatchedPairs int       `json:"matchedPairs"`
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt,omitempty"`
}

// RecordStart inserts the row for a new round.
func (s *SQL) RecordStart(ctx context.Context, g GameRow) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO games (id, round, user_id, anonymous_id, variant, pair_count, status, started_at)
        VALUES (?,?,?,?,?,?,?,?)`,
		g.ID, g.Round, nullable(g.UserID), nullable(g.AnonymousID), g.Variant, g.PairCount,
		StatusPlaying, g.StartedAt.UTC().Format(time.RFC3339))
	return err
}

// RecordFinish closes a round that is still playing. It reports whether a
// row changed, so completion is only counted once.
func (s *SQL) RecordFinish(ctx context.Context, id string, round uint64, status string, matchedPairs int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE games SET status=?, matched_pairs=?, finished_at=?
        WHERE id=? AND round=? AND status=?`,
		status, matchedPairs, time.Now().UTC().Format(time.RFC3339), id, round, StatusPlaying)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RecentGames lists a user's latest rounds, newest first.
func (s *SQL) RecentGames(ctx context.Context, userID string, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, round, variant, pair_count, matched_pairs, status, started_at, COALESCE(finished_at,'')
        FROM games WHERE user_id=? ORDER BY started_at DESC, round DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GameRow{}
	for rows.Next() {
		var g GameRow
		var started, finished string
		if err := rows.Scan(&g.ID, &g.Round, &g.Variant, &g.PairCount, &g.MatchedPairs, &g.Status, &started, &finished); err != nil {
			return nil, err
		}
		g.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			g.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ClaimAnon transfers anonymous history to a user account after login.
func (s *SQL) ClaimAnon(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}

// LoadSoundSettings returns the owner's saved settings, or defaults with
// found=false.
func (s *SQL) LoadSoundSettings(ctx context.Context, owner string) (sound.Settings, bool, error) {
	var st sound.Settings
	var muted int
	err := s.db.QueryRowContext(ctx,
		`SELECT master, music, effects, muted FROM sound_settings WHERE owner=?`, owner,
	).Scan(&st.MasterVolume, &st.MusicVolume, &st.EffectsVolume, &muted)
	if errors.Is(err, sql.ErrNoRows) {
		return sound.DefaultSettings(), false, nil
	}
	if err != nil {
		return sound.DefaultSettings(), false, err
	}
	st.Muted = muted != 0
	return st, true, nil
}

// SaveSoundSettings upserts the owner's settings.
func (s *SQL) SaveSoundSettings(ctx context.Context, owner string, st sound.Settings) error {
	muted := 0
	if st.Muted {
		muted = 1
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO sound_settings (owner, master, music, effects, muted, updated_at)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT(owner) DO UPDATE SET
            master=excluded.master, music=excluded.music, effects=excluded.effects,
            muted=excluded.muted, updated_at=excluded.updated_at`,
		owner, st.MasterVolume, st.MusicVolume, st.EffectsVolume, muted, time.Now().UTC().Format(time.RFC3339))
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
