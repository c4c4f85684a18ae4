package httpserver

import (
	"github.com/robalobadob/memory-game/internal/game"
	"github.com/robalobadob/memory-game/internal/store"
	"github.com/robalobadob/memory-game/internal/symbols"
)

// cardView is one grid cell. Symbol and color stay empty while the card is
// face-down so the client cannot peek.
type cardView struct {
	Position   int    `json:"position"`
	ID         int    `json:"id"`
	Symbol     string `json:"symbol,omitempty"`
	Color      string `json:"color,omitempty"`
	FaceUp     bool   `json:"faceUp"`
	Matched    bool   `json:"matched"`
	Decorative bool   `json:"decorative,omitempty"`
}

type gameView struct {
	GameID         string     `json:"gameId"`
	Variant        string     `json:"variant"`
	Rows           int        `json:"rows"`
	Cols           int        `json:"cols"`
	Round          uint64     `json:"round"`
	Cards          []cardView `json:"cards"`
	MatchedPairs   int        `json:"matchedPairs"`
	PairCount      int        `json:"pairCount"`
	Resolving      bool       `json:"resolving"`
	Won            bool       `json:"won"`
	CompletionOpen bool       `json:"completionOpen"`
	DailyDate      string     `json:"dailyDate,omitempty"`

	// Delays let the client time its flip-back animation.
	MatchDelayMs    int64 `json:"matchDelayMs"`
	MismatchDelayMs int64 `json:"mismatchDelayMs"`
}

func viewOf(sess *store.Session, snap game.Snapshot) gameView {
	v := gameView{
		GameID:         sess.ID,
		Variant:        sess.Variant.Name,
		Rows:           sess.Variant.Rows,
		Cols:           sess.Variant.Cols,
		Round:          snap.Round,
		Cards:          make([]cardView, len(snap.Cards)),
		MatchedPairs:   snap.MatchedPairs,
		PairCount:      snap.PairCount,
		Resolving:      snap.Resolving,
		Won:            snap.Won,
		CompletionOpen: snap.CompletionOpen,
		DailyDate:      sess.DailyDate,
	}
	if sess.Engine != nil {
		cfg := sess.Engine.Config()
		v.MatchDelayMs = cfg.MatchDelay.Milliseconds()
		v.MismatchDelayMs = cfg.MismatchDelay.Milliseconds()
	}
	for i, c := range snap.Cards {
		cv := cardView{
			Position:   i,
			ID:         c.ID,
			FaceUp:     snap.IsFaceUp(i),
			Matched:    c.Matched,
			Decorative: c.Decorative,
		}
		if cv.FaceUp || cv.Matched || cv.Decorative {
			cv.Symbol = string(c.Symbol)
			if ic, ok := symbols.Lookup(c.Symbol); ok {
				cv.Color = ic.Color
			}
		}
		v.Cards[i] = cv
	}
	return v
}
