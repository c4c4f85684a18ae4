// internal/httpserver/routes_daily.go
//
// HTTP route for the daily layout.
//   - POST /daily/new → start (or resume) today's game for the caller
//
// Every player gets the same deal for a given UTC date and variant: the
// shuffle is seeded from HMAC(salt, date). Each player can complete the daily
// once; the first completion is persisted by the session recorder.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-game/internal/daily"
	"github.com/robalobadob/memory-game/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[dailyKey]string // → game id
	mu       sync.Mutex
}

type dailyKey struct {
	owner, date, variant string
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	salt := s.cfg.DailySalt
	if salt == "" {
		salt = "local_dev_salt"
	}
	s.daily = &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.repo.DB()),
		salt:     salt,
		sessions: make(map[dailyKey]string),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.daily.handleNew)
	})
}

type dailyNewReq struct {
	Variant string `json:"variant"`
}

// dailyNewRes is returned by /daily/new. Game is omitted when Played.
type dailyNewRes struct {
	GameID string    `json:"gameId"`
	Date   string    `json:"date"`
	Played bool      `json:"played"`
	Game   *gameView `json:"game,omitempty"`
}

// handleNew returns played=true when today's daily is already completed,
// resumes an unfinished session, or deals a new one.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	var req dailyNewReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	v, err := game.LookupVariant(req.Variant)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_variant")
		return
	}

	now := d.srv.now()
	date := daily.DateKey(now)
	who := d.srv.owner(w, r)

	played, err := d.store.AlreadyPlayed(r.Context(), who.id, date)
	if err != nil {
		log.Warn().Err(err).Msg("daily already played")
	}
	if played {
		writeJSON(w, dailyNewRes{Date: date, Played: true})
		return
	}

	key := dailyKey{owner: who.id, date: date, variant: v.Name}
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.sessions[key]; ok {
		if sess, err := d.srv.store.Get(r.Context(), id); err == nil {
			view := viewOf(sess, sess.Engine.Snapshot())
			writeJSON(w, dailyNewRes{GameID: id, Date: date, Game: &view})
			return
		}
		delete(d.sessions, key)
	}

	sess, err := d.srv.startSession(r.Context(), who, v, daily.Rand(now, d.salt), date)
	if err != nil {
		log.Error().Err(err).Msg("start daily session")
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	d.sessions[key] = sess.ID
	view := viewOf(sess, sess.Engine.Snapshot())
	writeJSON(w, dailyNewRes{GameID: sess.ID, Date: date, Game: &view})
}

// prune drops entries from earlier days and entries whose session has been
// evicted, and reports how many it removed.
func (d *dailyServer) prune(ctx context.Context, now time.Time) int {
	today := daily.DateKey(now)
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for k, id := range d.sessions {
		if k.date == today {
			if _, err := d.srv.store.Get(ctx, id); err == nil {
				continue
			}
		}
		delete(d.sessions, k)
		n++
	}
	return n
}
