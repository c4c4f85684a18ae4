// internal/game/engine.go
//
// Match engine for a single memory game session.
// Responsibilities:
//   - Deal a shuffled deck on construction and on every reset.
//   - Validate reveals against session state (won, matched, face-up, resolving).
//   - Schedule pair evaluation once two cards are face-up, tagged with the
//     round it was scheduled under so resets invalidate it.
//   - Commit outcomes: mark matched, bump the pair counter, detect the win.
//   - Deliver notifications in transition order, isolated from engine state.
//
// States: Idle (0–1 face-up) → AwaitingResolution (2 face-up, inputs locked)
// → Idle. Won is an orthogonal flag that rejects every further reveal.
package game

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"
)

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithScheduler replaces the wall-clock scheduler (tests use a manual one).
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithNotifier sets the side-effect collaborator.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithRand sets the shuffle source. Daily decks pass a seeded generator.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

type notification uint8

const (
	notifyFlip notification = iota
	notifyMatchSuccess
	notifyMatchFail
	notifyGameComplete
	notifyPresentCompletion
	notifyRoundWon
	notifyDismissCompletion
)

func (n notification) String() string {
	switch n {
	case notifyFlip:
		return "flip"
	case notifyMatchSuccess:
		return "match_success"
	case notifyMatchFail:
		return "match_fail"
	case notifyGameComplete:
		return "game_complete"
	case notifyRoundWon:
		return "round_won"
	case notifyPresentCompletion:
		return "present_completion"
	case notifyDismissCompletion:
		return "dismiss_completion"
	}
	return "unknown"
}

// Engine owns one game session. All methods are safe for concurrent use;
// reveals, resets and timer callbacks are applied strictly one at a time.
type Engine struct {
	mu sync.Mutex // guards every field below except the turnstile

	// Delivery turnstile: each notifying transition draws a ticket under mu
	// and delivers when serving reaches it.
	order   sync.Mutex
	turn    *sync.Cond
	serving uint64
	tickets uint64 // guarded by mu

	cfg      Config
	sched    Scheduler
	notifier Notifier
	rng      *rand.Rand

	deck           []Card
	faceUp         []int
	resolving      bool
	matchedPairs   int
	won            bool
	completionOpen bool
	round          uint64
	pending        Timer
}

// New validates cfg and deals the first deck.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	pool := make([]Symbol, len(cfg.SymbolPool))
	copy(pool, cfg.SymbolPool)
	cfg.SymbolPool = pool

	e := &Engine{cfg: cfg}
	e.turn = sync.NewCond(&e.order)
	for _, opt := range opts {
		opt(e)
	}
	if e.sched == nil {
		e.sched = WallClock()
	}
	if e.notifier == nil {
		e.notifier = NopNotifier{}
	}
	if e.rng == nil {
		e.rng = newRand()
	}
	e.deck = Deal(e.cfg, e.rng)
	return e, nil
}

// Reveal turns the card at position face-up.
//
// Returns accepted=false with a nil error when the reveal is silently
// rejected (game won, card matched, already face-up, or a pair is resolving).
// An out-of-range position returns ErrPositionOutOfRange and changes nothing.
func (e *Engine) Reveal(position int) (bool, error) {
	e.mu.Lock()
	if position < 0 || position >= len(e.deck) {
		n := len(e.deck)
		e.mu.Unlock()
		return false, fmt.Errorf("%w: %d not in [0,%d)", ErrPositionOutOfRange, position, n)
	}
	if e.won || e.resolving || e.deck[position].Matched || e.isFaceUp(position) {
		e.mu.Unlock()
		return false, nil
	}

	e.faceUp = append(e.faceUp, position)
	if len(e.faceUp) == 2 {
		e.resolving = true
		first, second := e.deck[e.faceUp[0]], e.deck[e.faceUp[1]]
		delay := e.cfg.MismatchDelay
		if first.Symbol == second.Symbol {
			delay = e.cfg.MatchDelay
		}
		round := e.round
		e.pending = e.sched.AfterFunc(delay, func() { e.evaluate(round) })
	}
	e.unlockAndNotify(notifyFlip)
	return true, nil
}

// evaluate resolves the two face-up cards. It runs once per
// AwaitingResolution entry; a callback from an earlier round is discarded.
func (e *Engine) evaluate(round uint64) {
	e.mu.Lock()
	if round != e.round || !e.resolving || len(e.faceUp) != 2 {
		e.mu.Unlock()
		log.Debug().Uint64("scheduled", round).Msg("discarding stale pair evaluation")
		return
	}
	e.pending = nil

	first, second := e.faceUp[0], e.faceUp[1]
	var out []notification
	if e.deck[first].Symbol == e.deck[second].Symbol {
		e.deck[first].Matched = true
		e.deck[second].Matched = true
		e.matchedPairs++
		out = append(out, notifyMatchSuccess)
		if e.matchedPairs == e.cfg.PairCount && !e.won {
			e.won = true
			e.completionOpen = true
			out = append(out, notifyGameComplete, notifyPresentCompletion, notifyRoundWon)
		}
	} else {
		out = append(out, notifyMatchFail)
	}
	e.faceUp = nil
	e.resolving = false
	e.unlockAndNotify(out...)
}

// Reset deals a new deck and returns every counter and flag to its start
// value. A pending evaluation from the old deck never applies. The returned
// snapshot is the finished round as it stood at the moment of the reset.
func (e *Engine) Reset() Snapshot {
	e.mu.Lock()
	prev := e.snapshot()
	e.round++
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	e.deck = Deal(e.cfg, e.rng)
	e.faceUp = nil
	e.resolving = false
	e.matchedPairs = 0
	e.won = false

	var out []notification
	if e.completionOpen {
		e.completionOpen = false
		out = append(out, notifyDismissCompletion)
	}
	e.unlockAndNotify(out...)
	return prev
}

// DismissCompletion closes the completion dialog without resetting.
func (e *Engine) DismissCompletion() {
	e.mu.Lock()
	if !e.completionOpen {
		e.mu.Unlock()
		return
	}
	e.completionOpen = false
	e.unlockAndNotify(notifyDismissCompletion)
}

// Close invalidates any pending evaluation. The engine stays readable.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.round++
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	e.faceUp = nil
	e.resolving = false
}

// Snapshot returns a deep copy of the session for rendering.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() Snapshot {
	cards := make([]Card, len(e.deck))
	copy(cards, e.deck)
	faceUp := make([]int, len(e.faceUp))
	copy(faceUp, e.faceUp)
	return Snapshot{
		Round:          e.round,
		Cards:          cards,
		FaceUp:         faceUp,
		MatchedPairs:   e.matchedPairs,
		PairCount:      e.cfg.PairCount,
		Resolving:      e.resolving,
		Won:            e.won,
		CompletionOpen: e.completionOpen,
	}
}

// IsFaceUp reports whether position is face-up and unresolved.
func (e *Engine) IsFaceUp(position int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isFaceUp(position)
}

// Config returns the validated configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) isFaceUp(position int) bool {
	for _, p := range e.faceUp {
		if p == position {
			return true
		}
	}
	return false
}

// unlockAndNotify draws a delivery ticket, releases the state lock and
// delivers once every earlier ticket has been served, so deliveries keep the
// order of their transitions without holding mu while waiting.
// Must be called with e.mu held.
func (e *Engine) unlockAndNotify(out ...notification) {
	if len(out) == 0 {
		e.mu.Unlock()
		return
	}
	ticket := e.tickets
	e.tickets++
	round, matched := e.round, e.matchedPairs
	e.mu.Unlock()

	e.order.Lock()
	for e.serving != ticket {
		e.turn.Wait()
	}
	e.order.Unlock()

	for _, n := range out {
		e.deliver(n, round, matched)
	}

	e.order.Lock()
	e.serving++
	e.turn.Broadcast()
	e.order.Unlock()
}

// deliver invokes one notification. A panicking notifier is logged and
// swallowed; engine state is already committed.
func (e *Engine) deliver(n notification, round uint64, matched int) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("notification", n.String()).Msg("notifier failed")
		}
	}()
	switch n {
	case notifyFlip:
		e.notifier.OnFlip()
	case notifyMatchSuccess:
		e.notifier.OnMatchSuccess()
	case notifyMatchFail:
		e.notifier.OnMatchFail()
	case notifyGameComplete:
		e.notifier.OnGameComplete()
	case notifyRoundWon:
		if o, ok := e.notifier.(RoundObserver); ok {
			o.OnRoundWon(round, matched)
		}
	case notifyPresentCompletion:
		if p, ok := e.notifier.(CompletionPresenter); ok {
			p.PresentCompletion()
		}
	case notifyDismissCompletion:
		if p, ok := e.notifier.(CompletionPresenter); ok {
			p.DismissCompletion()
		}
	}
}

// newRand seeds a ChaCha8 generator from crypto/rand.
func newRand() *rand.Rand {
	var seed [32]byte
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}
