package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-game/assets"
	"github.com/robalobadob/memory-game/internal/config"
	"github.com/robalobadob/memory-game/internal/events"
	"github.com/robalobadob/memory-game/internal/httpserver"
	"github.com/robalobadob/memory-game/internal/realtime"
	"github.com/robalobadob/memory-game/internal/store"
	"github.com/robalobadob/memory-game/internal/symbols"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	config.SetupLogging(cfg)

	if err := symbols.Init(cfg.SymbolsFile); err != nil {
		log.Fatal().Err(err).Str("file", cfg.SymbolsFile).Msg("failed to load symbols")
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("open database")
	}
	defer db.Close()
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || strings.EqualFold(o, cfg.ClientOrigin)
	})
	go hub.Run(ctx)

	opts := []httpserver.Option{httpserver.WithHub(hub)}
	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable, event publishing disabled")
		} else {
			defer pub.Close()
			opts = append(opts, httpserver.WithSink(pub))
			log.Info().Str("url", cfg.NATSURL).Msg("publishing game events to nats")
		}
	}

	srv := httpserver.New(cfg, store.NewMemoryStore(), db, opts...)
	go sweep(ctx, srv, cfg.SessionSweepInterval, cfg.SessionIdleTTL)
	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Int("symbols", symbols.Stats()).Msg("starting memory-go")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// sweep evicts idle sessions until ctx is done.
func sweep(ctx context.Context, srv *httpserver.Server, every, ttl time.Duration) {
	if every <= 0 || ttl <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := srv.Sweep(ctx, now.Add(-ttl)); n > 0 {
				log.Info().Int("evicted", n).Msg("swept idle sessions")
			}
		}
	}
}
