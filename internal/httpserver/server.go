// internal/httpserver/server.go
//
// HTTP server wiring for the memory game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/sounds".
//   - Game endpoints (optional auth): /game/new and /game/{id}/*.
//   - Daily layout endpoint (optional auth): POST /daily/new.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Live sessions sit in store.Store; the database only sees history rows.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-game/internal/config"
	"github.com/robalobadob/memory-game/internal/game"
	"github.com/robalobadob/memory-game/internal/realtime"
	"github.com/robalobadob/memory-game/internal/sound"
	"github.com/robalobadob/memory-game/internal/store"
	"github.com/robalobadob/memory-game/internal/symbols"
)

// Server bundles router, live session store, and history repositories.
type Server struct {
	cfg   config.Config
	r     *chi.Mux
	store store.Store
	repo  *store.SQL
	daily *dailyServer

	hub   *realtime.Hub
	sink  sound.Sink // extra event sink, e.g. NATS; may be nil
	sched game.Scheduler
	pool  []game.Symbol
	now   func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithScheduler sets the timer source for new engines.
func WithScheduler(sc game.Scheduler) Option { return func(s *Server) { s.sched = sc } }

// WithHub enables the websocket event stream. The caller runs the hub.
func WithHub(h *realtime.Hub) Option { return func(s *Server) { s.hub = h } }

// WithSink adds a sink that receives every game event.
func WithSink(sk sound.Sink) Option { return func(s *Server) { s.sink = sk } }

// WithSymbols overrides the symbol pool loaded by the symbols package.
func WithSymbols(pool []game.Symbol) Option { return func(s *Server) { s.pool = pool } }

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		r:     chi.NewRouter(),
		store: st,
		repo:  store.NewSQL(db),
		sched: game.WallClock(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = symbols.Pool()
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"memory-go","endpoints":["/health","/sounds","POST /game/new","/game/{id}","POST /daily/new","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/sounds", s.handleSounds)

	// Game endpoints: guests can play.
	s.r.Route("/game", func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/new", s.handleNewGame)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/", s.handleGetGame)
			r.Post("/reveal", s.handleReveal)
			r.Post("/reset", s.handleReset)
			r.Post("/dismiss", s.handleDismiss)
			r.Get("/sound", s.handleGetSound)
			r.Put("/sound", s.handlePutSound)
			r.Post("/music", s.handleToggleMusic)
			r.Get("/events", s.handleEvents)
		})
	})

	s.mountDaily(s.r.With(s.withOptionalAuth()))
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	s.r.Get("/debug/symbols", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"icons": symbols.Stats(), "pool": len(s.pool)})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Sweep evicts sessions idle since before cutoff and forgets daily entries
// that no longer point at a live session for today.
func (s *Server) Sweep(ctx context.Context, cutoff time.Time) int {
	n := s.store.Sweep(ctx, cutoff)
	if pruned := s.daily.prune(ctx, s.now()); pruned > 0 {
		log.Debug().Int("pruned", pruned).Msg("pruned daily sessions")
	}
	return n
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError writes {"error": code} with status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

// ------------------------------ SOUNDS -------------------------------------

// handleSounds lists the cue catalog and reports whether ?sound= is known.
func (s *Server) handleSounds(w http.ResponseWriter, r *http.Request) {
	cues := sound.Catalog()
	names := make([]string, len(cues))
	for i, c := range cues {
		names[i] = string(c)
	}
	var requested *string
	available := false
	if q := r.URL.Query().Get("sound"); q != "" {
		requested = &q
		available = sound.Known(q)
	}
	writeJSON(w, map[string]any{
		"sounds":    names,
		"requested": requested,
		"available": available,
		"basePath":  sound.BasePath,
	})
}
