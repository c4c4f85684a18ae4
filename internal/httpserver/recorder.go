package httpserver

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-game/internal/daily"
	"github.com/robalobadob/memory-game/internal/game"
	"github.com/robalobadob/memory-game/internal/store"
)

// recorder persists a won round. It runs on the engine's notification path,
// usually from the evaluation timer goroutine.
type recorder struct {
	game.NopNotifier
	srv  *Server
	sess *store.Session
}

func (rc *recorder) OnRoundWon(round uint64, matchedPairs int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess := rc.sess
	l := log.With().Str("gameId", sess.ID).Uint64("round", round).Logger()

	changed, err := rc.srv.repo.RecordFinish(ctx, sess.ID, round, store.StatusCompleted, matchedPairs)
	if err != nil {
		l.Warn().Err(err).Msg("record finish")
		return
	}
	if !changed {
		return
	}
	if !sess.Anonymous {
		if err := rc.srv.repo.BumpStats(ctx, sess.OwnerID, false, true); err != nil {
			l.Warn().Err(err).Msg("bump stats")
		}
	}
	if sess.DailyDate != "" {
		res := daily.Result{
			UserID:    sess.OwnerID,
			Date:      sess.DailyDate,
			ElapsedMs: rc.srv.now().Sub(sess.RoundStart()).Milliseconds(),
		}
		if err := rc.srv.daily.store.InsertResult(ctx, res); err != nil {
			l.Warn().Err(err).Msg("insert daily result")
		}
	}
	l.Info().Int("pairs", matchedPairs).Msg("game completed")
}
