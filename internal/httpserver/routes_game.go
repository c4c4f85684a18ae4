// internal/httpserver/routes_game.go
//
// Game session endpoints.
//   - POST /game/new            → deal a fresh deck for the chosen variant
//   - GET  /game/{id}           → current board (face-down symbols hidden)
//   - POST /game/{id}/reveal    → flip one card
//   - POST /game/{id}/reset     → new deck, same session
//   - POST /game/{id}/dismiss   → close the completion dialog
//   - GET|PUT /game/{id}/sound  → volume settings and music state
//   - POST /game/{id}/music     → play/pause the background track
//   - GET  /game/{id}/events    → websocket stream of sound/dialog events
//
// Pair resolution happens on the engine's timer, not in the request, so a
// reveal response shows the pair still resolving; clients poll or listen.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-game/internal/game"
	"github.com/robalobadob/memory-game/internal/sound"
	"github.com/robalobadob/memory-game/internal/store"
)

type ctxSessionKey struct{}

func sessionFrom(ctx context.Context) *store.Session {
	sess, _ := ctx.Value(ctxSessionKey{}).(*store.Session)
	return sess
}

// withSession loads the {id} session, refreshing its idle timer.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		sess.Touch(s.now())
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSessionKey{}, sess)))
	})
}

type newGameReq struct {
	Variant string `json:"variant"` // "classic" | "center"; empty means classic
}

type newGameRes struct {
	GameID string   `json:"gameId"`
	Game   gameView `json:"game"`
}

// handleNewGame starts a session and records the first round.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	v, err := game.LookupVariant(req.Variant)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_variant")
		return
	}
	sess, err := s.startSession(r.Context(), s.owner(w, r), v, nil, "")
	if err != nil {
		log.Error().Err(err).Str("variant", v.Name).Msg("start session")
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	writeJSON(w, newGameRes{GameID: sess.ID, Game: viewOf(sess, sess.Engine.Snapshot())})
}

// startSession builds the engine with its notifier chain, registers the
// session and writes the history row. rng may be nil for a random deal.
func (s *Server) startSession(ctx context.Context, who sessionOwner, v game.Variant, rng *rand.Rand, dailyDate string) (*store.Session, error) {
	cfg, err := v.Config(s.pool)
	if err != nil {
		return nil, err
	}

	settings, _, err := s.repo.LoadSoundSettings(ctx, who.id)
	if err != nil {
		log.Warn().Err(err).Msg("load sound settings")
	}

	id := uuid.NewString()
	now := s.now()
	sess := &store.Session{
		ID:        id,
		Variant:   v,
		OwnerID:   who.id,
		Anonymous: who.anonymous,
		DailyDate: dailyDate,
		StartedAt: now,
	}
	sess.Sound = sound.NewNotifier(id, settings, s.sinks())

	opts := []game.Option{
		game.WithScheduler(s.sched),
		game.WithNotifier(game.Notifiers{sess.Sound, &recorder{srv: s, sess: sess}}),
	}
	if rng != nil {
		opts = append(opts, game.WithRand(rng))
	}
	e, err := game.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	sess.Engine = e
	sess.BeginRound(now)

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.recordRound(ctx, sess, 0)
	sess.Sound.StartMusic()
	return sess, nil
}

// sinks lists the live event destinations for a new session.
func (s *Server) sinks() sound.Sinks {
	var out sound.Sinks
	if s.hub != nil {
		out = append(out, s.hub)
	}
	if s.sink != nil {
		out = append(out, s.sink)
	}
	return out
}

// recordRound writes the history row for a freshly dealt round. Failures are
// logged; play continues without history.
func (s *Server) recordRound(ctx context.Context, sess *store.Session, round uint64) {
	row := store.GameRow{
		ID:        sess.ID,
		Round:     round,
		Variant:   sess.Variant.Name,
		PairCount: sess.Variant.PairCount,
		StartedAt: sess.RoundStart(),
	}
	if sess.Anonymous {
		row.AnonymousID = sess.OwnerID
	} else {
		row.UserID = sess.OwnerID
	}
	if err := s.repo.RecordStart(ctx, row); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("insert game row")
		return
	}
	if !sess.Anonymous {
		if err := s.repo.BumpStats(ctx, sess.OwnerID, true, false); err != nil {
			log.Warn().Err(err).Str("user", sess.OwnerID).Msg("bump stats")
		}
	}
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	writeJSON(w, viewOf(sess, sess.Engine.Snapshot()))
}

type revealReq struct {
	Position *int `json:"position"`
}

type revealRes struct {
	Accepted bool     `json:"accepted"`
	Game     gameView `json:"game"`
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var req revealReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Position == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	accepted, err := sess.Engine.Reveal(*req.Position)
	if errors.Is(err, game.ErrPositionOutOfRange) {
		writeError(w, http.StatusBadRequest, "position_out_of_range")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reveal_failed")
		return
	}
	writeJSON(w, revealRes{Accepted: accepted, Game: viewOf(sess, sess.Engine.Snapshot())})
}

// handleReset deals a new round and closes the old one as abandoned unless
// it was won by the time of the reset. Daily sessions cannot be reset: a
// redeal would leave the shared layout.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.DailyDate != "" {
		writeError(w, http.StatusConflict, "daily_no_reset")
		return
	}
	prev := sess.Engine.Reset()
	sess.BeginRound(s.now())
	if !prev.Won {
		if _, err := s.repo.RecordFinish(r.Context(), sess.ID, prev.Round, store.StatusAbandoned, prev.MatchedPairs); err != nil {
			log.Warn().Err(err).Str("gameId", sess.ID).Msg("record abandoned round")
		}
	}

	after := sess.Engine.Snapshot()
	s.recordRound(r.Context(), sess, after.Round)
	if sess.Sound.MusicPlaying() {
		sess.Sound.StartMusic()
	}
	writeJSON(w, viewOf(sess, after))
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Engine.DismissCompletion()
	writeJSON(w, viewOf(sess, sess.Engine.Snapshot()))
}

// soundRes is the session's volume settings plus the music state.
type soundRes struct {
	sound.Settings
	MusicPlaying bool `json:"isMusicPlaying"`
}

func soundResOf(n *sound.Notifier) soundRes {
	return soundRes{Settings: n.Settings(), MusicPlaying: n.MusicPlaying()}
}

func (s *Server) handleGetSound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, soundResOf(sessionFrom(r.Context()).Sound))
}

// handleToggleMusic pauses or resumes the background track.
func (s *Server) handleToggleMusic(w http.ResponseWriter, r *http.Request) {
	n := sessionFrom(r.Context()).Sound
	n.ToggleMusic()
	writeJSON(w, soundResOf(n))
}

// handlePutSound applies new volumes to the session and saves them for the
// owner's next game.
func (s *Server) handlePutSound(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var st sound.Settings
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if err := st.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.Sound.SetSettings(st)
	if err := s.repo.SaveSoundSettings(r.Context(), sess.OwnerID, st); err != nil {
		log.Warn().Err(err).Str("owner", sess.OwnerID).Msg("save sound settings")
	}
	writeJSON(w, soundResOf(sess.Sound))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "events_disabled")
		return
	}
	s.hub.ServeWS(w, r, sessionFrom(r.Context()).ID)
}
