package game_test

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory-game/internal/game"
	"github.com/robalobadob/memory-game/internal/game/gametest"
)

const (
	matchDelay    = 500 * time.Millisecond
	mismatchDelay = 1000 * time.Millisecond
)

type harness struct {
	engine *game.Engine
	clock  *gametest.ManualScheduler
	rec    *gametest.Recorder
}

func newHarness(t *testing.T, pairs int) *harness {
	t.Helper()
	h := &harness{clock: gametest.NewManualScheduler(), rec: &gametest.Recorder{}}
	cfg := game.Config{
		PairCount:     pairs,
		SymbolPool:    gametest.Symbols(pairs + 3),
		MatchDelay:    matchDelay,
		MismatchDelay: mismatchDelay,
	}
	e, err := game.New(cfg,
		game.WithScheduler(h.clock),
		game.WithNotifier(h.rec),
		game.WithRand(rand.New(rand.NewPCG(42, uint64(pairs)))),
	)
	require.NoError(t, err)
	h.engine = e
	return h
}

func (h *harness) reveal(t *testing.T, pos int) bool {
	t.Helper()
	ok, err := h.engine.Reveal(pos)
	require.NoError(t, err)
	return ok
}

// matchNext reveals one unmatched pair and lets it resolve.
func (h *harness) matchNext(t *testing.T) {
	t.Helper()
	snap := h.engine.Snapshot()
	for _, pos := range gametest.PairPositions(snap) {
		if snap.Cards[pos[0]].Matched {
			continue
		}
		require.True(t, h.reveal(t, pos[0]))
		require.True(t, h.reveal(t, pos[1]))
		h.clock.Advance(matchDelay)
		return
	}
	t.Fatal("no unmatched pair left")
}

func TestReveal_MatchingPair(t *testing.T) {
	h := newHarness(t, 10)
	snap := h.engine.Snapshot()
	require.Len(t, snap.Cards, 20)

	var pair []int
	for _, p := range gametest.PairPositions(snap) {
		pair = p
		break
	}

	assert.True(t, h.reveal(t, pair[0]))
	assert.True(t, h.engine.IsFaceUp(pair[0]))
	assert.True(t, h.reveal(t, pair[1]))
	assert.True(t, h.engine.Snapshot().Resolving)
	assert.Equal(t, []string{gametest.Flip, gametest.Flip}, h.rec.Events())

	h.clock.Advance(matchDelay - time.Millisecond)
	assert.Equal(t, 0, h.engine.Snapshot().MatchedPairs, "must not resolve before the delay")

	h.clock.Advance(time.Millisecond)
	snap = h.engine.Snapshot()
	assert.True(t, snap.Cards[pair[0]].Matched)
	assert.True(t, snap.Cards[pair[1]].Matched)
	assert.Equal(t, 1, snap.MatchedPairs)
	assert.Empty(t, snap.FaceUp)
	assert.False(t, snap.Resolving)
	assert.Equal(t, 1, h.rec.Count(gametest.MatchSuccess))
	assert.Equal(t, []string{gametest.Flip, gametest.Flip, gametest.MatchSuccess}, h.rec.Events())
}

func TestReveal_Mismatch(t *testing.T) {
	h := newHarness(t, 10)
	a, b := gametest.Mismatch(h.engine.Snapshot())
	require.GreaterOrEqual(t, a, 0)

	h.reveal(t, a)
	h.reveal(t, b)

	h.clock.Advance(matchDelay)
	assert.Equal(t, 0, h.rec.Count(gametest.MatchFail), "mismatch waits the longer delay")
	assert.True(t, h.engine.Snapshot().Resolving)

	h.clock.Advance(mismatchDelay - matchDelay)
	snap := h.engine.Snapshot()
	assert.False(t, snap.Cards[a].Matched)
	assert.False(t, snap.Cards[b].Matched)
	assert.Empty(t, snap.FaceUp)
	assert.False(t, snap.Resolving)
	assert.Equal(t, 0, snap.MatchedPairs)
	assert.Equal(t, 1, h.rec.Count(gametest.MatchFail))
	assert.Equal(t, []string{gametest.Flip, gametest.Flip, gametest.MatchFail}, h.rec.Events())
}

func TestReveal_RejectedWhileResolving(t *testing.T) {
	h := newHarness(t, 10)
	a, b := gametest.Mismatch(h.engine.Snapshot())
	h.reveal(t, a)
	h.reveal(t, b)
	before := h.engine.Snapshot()

	var third int
	for third = 0; third == a || third == b; third++ {
	}
	assert.False(t, h.reveal(t, third))
	assert.Equal(t, before, h.engine.Snapshot())
	assert.Equal(t, 2, h.rec.Count(gametest.Flip))
	assert.Equal(t, 1, h.clock.Pending(), "no second evaluation scheduled")
}

func TestReveal_IdempotentOnFaceUpAndMatched(t *testing.T) {
	h := newHarness(t, 4)
	snap := h.engine.Snapshot()

	h.reveal(t, 0)
	assert.False(t, h.reveal(t, 0), "same card twice")
	assert.Equal(t, 1, h.rec.Count(gametest.Flip))
	assert.Equal(t, []int{0}, h.engine.Snapshot().FaceUp)

	// Finish that turn, then match a pair and poke it again.
	h.engine.Reset()
	h.rec.Reset()
	snap = h.engine.Snapshot()
	var pair []int
	for _, p := range gametest.PairPositions(snap) {
		pair = p
		break
	}
	h.reveal(t, pair[0])
	h.reveal(t, pair[1])
	h.clock.Advance(matchDelay)
	h.rec.Reset()

	before := h.engine.Snapshot()
	assert.False(t, h.reveal(t, pair[0]))
	assert.False(t, h.reveal(t, pair[1]))
	assert.Equal(t, before, h.engine.Snapshot())
	assert.Empty(t, h.rec.Events())
}

func TestReveal_OutOfRange(t *testing.T) {
	h := newHarness(t, 2)
	before := h.engine.Snapshot()

	for _, pos := range []int{-1, 4, 100} {
		ok, err := h.engine.Reveal(pos)
		assert.False(t, ok)
		assert.ErrorIs(t, err, game.ErrPositionOutOfRange)
	}
	assert.Equal(t, before, h.engine.Snapshot())
	assert.Empty(t, h.rec.Events())
}

func TestWin_FiresOnceAtTarget(t *testing.T) {
	h := newHarness(t, 12)

	for i := 0; i < 11; i++ {
		h.matchNext(t)
	}
	snap := h.engine.Snapshot()
	assert.Equal(t, 11, snap.MatchedPairs)
	assert.False(t, snap.Won)
	assert.Equal(t, 0, h.rec.Count(gametest.GameComplete))

	h.matchNext(t)
	snap = h.engine.Snapshot()
	assert.Equal(t, 12, snap.MatchedPairs)
	assert.True(t, snap.Won)
	assert.True(t, snap.CompletionOpen)
	assert.Equal(t, 1, h.rec.Count(gametest.GameComplete))
	assert.Equal(t, 1, h.rec.Count(gametest.PresentCompletion))

	events := h.rec.Events()
	assert.Equal(t, []string{gametest.MatchSuccess, gametest.GameComplete, gametest.PresentCompletion}, events[len(events)-3:])

	// Further input is rejected and never re-fires completion.
	for pos := range snap.Cards {
		ok, err := h.engine.Reveal(pos)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	h.engine.DismissCompletion()
	h.engine.DismissCompletion()
	h.clock.Advance(time.Hour)
	assert.Equal(t, 1, h.rec.Count(gametest.GameComplete))
	assert.Equal(t, 1, h.rec.Count(gametest.DismissCompletion))
	assert.True(t, h.engine.Snapshot().Won)
}

func TestWin_DecorativeVariant(t *testing.T) {
	rec := &gametest.Recorder{}
	clock := gametest.NewManualScheduler()
	cfg, err := game.Center.Config(gametest.Symbols(15))
	require.NoError(t, err)
	e, err := game.New(cfg, game.WithScheduler(clock), game.WithNotifier(rec))
	require.NoError(t, err)

	snap := e.Snapshot()
	require.Len(t, snap.Cards, 25)
	ok, err := e.Reveal(12)
	require.NoError(t, err)
	assert.False(t, ok, "decorative centre card is pre-matched")

	for _, pos := range gametest.PairPositions(snap) {
		_, _ = e.Reveal(pos[0])
		_, _ = e.Reveal(pos[1])
		clock.Advance(cfg.MatchDelay)
	}
	assert.True(t, e.Snapshot().Won)
	assert.Equal(t, 12, e.Snapshot().MatchedPairs)
	assert.Equal(t, 1, rec.Count(gametest.GameComplete))
}

func TestReset_CancelsInFlightEvaluation(t *testing.T) {
	h := newHarness(t, 10)
	a, b := gametest.Mismatch(h.engine.Snapshot())
	h.reveal(t, a)
	h.reveal(t, b)

	h.clock.Advance(mismatchDelay / 2)
	h.engine.Reset()
	assert.Equal(t, 0, h.clock.Pending())

	h.clock.Advance(time.Hour)
	snap := h.engine.Snapshot()
	assert.Equal(t, 0, h.rec.Count(gametest.MatchFail))
	assert.Equal(t, 0, snap.MatchedPairs)
	assert.Empty(t, snap.FaceUp)
	assert.False(t, snap.Resolving)
	assert.Equal(t, uint64(1), snap.Round)
}

// leakyScheduler ignores Stop so the round tag alone must discard callbacks.
type leakyScheduler struct{ *gametest.ManualScheduler }

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (s leakyScheduler) AfterFunc(d time.Duration, f func()) game.Timer {
	s.ManualScheduler.AfterFunc(d, f)
	return leakyTimer{}
}

func TestReset_StaleCallbackDiscardedByRound(t *testing.T) {
	clock := leakyScheduler{gametest.NewManualScheduler()}
	rec := &gametest.Recorder{}
	cfg := game.Config{PairCount: 6, SymbolPool: gametest.Symbols(6), MatchDelay: matchDelay, MismatchDelay: mismatchDelay}
	e, err := game.New(cfg, game.WithScheduler(clock), game.WithNotifier(rec))
	require.NoError(t, err)

	var pair []int
	for _, p := range gametest.PairPositions(e.Snapshot()) {
		pair = p
		break
	}
	_, _ = e.Reveal(pair[0])
	_, _ = e.Reveal(pair[1])
	e.Reset()

	// Start a new turn on the fresh deck before the old timer fires.
	_, _ = e.Reveal(0)
	clock.Advance(time.Hour)

	snap := e.Snapshot()
	assert.Equal(t, 0, snap.MatchedPairs)
	assert.Equal(t, []int{0}, snap.FaceUp)
	assert.Equal(t, 0, rec.Count(gametest.MatchSuccess))
}

func TestClose_DiscardsPendingEvaluation(t *testing.T) {
	h := newHarness(t, 10)
	var pair []int
	for _, p := range gametest.PairPositions(h.engine.Snapshot()) {
		pair = p
		break
	}
	h.reveal(t, pair[0])
	h.reveal(t, pair[1])

	h.engine.Close()
	h.clock.Advance(time.Hour)

	snap := h.engine.Snapshot()
	assert.Equal(t, 0, snap.MatchedPairs)
	assert.False(t, snap.Resolving)
	assert.Equal(t, 0, h.rec.Count(gametest.MatchSuccess))
}

func TestReset_DismissesCompletionAndRestarts(t *testing.T) {
	h := newHarness(t, 2)
	h.matchNext(t)
	h.matchNext(t)
	require.True(t, h.engine.Snapshot().Won)

	h.engine.Reset()
	snap := h.engine.Snapshot()
	assert.False(t, snap.Won)
	assert.False(t, snap.CompletionOpen)
	assert.Equal(t, 0, snap.MatchedPairs)
	for _, c := range snap.Cards {
		assert.False(t, c.Matched)
	}
	assert.Equal(t, 1, h.rec.Count(gametest.DismissCompletion))

	// A second session can be won again, firing completion once more.
	h.matchNext(t)
	h.matchNext(t)
	assert.Equal(t, 2, h.rec.Count(gametest.GameComplete))
}

func TestReset_ReturnsFinishedRound(t *testing.T) {
	h := newHarness(t, 2)
	h.matchNext(t)

	snap := h.engine.Snapshot()
	var last []int
	for _, p := range gametest.PairPositions(snap) {
		if !snap.Cards[p[0]].Matched {
			last = p
			break
		}
	}
	require.NotNil(t, last)
	h.reveal(t, last[0])
	h.reveal(t, last[1])

	// The final pair is still resolving: the round ends unfinished.
	prev := h.engine.Reset()
	assert.Equal(t, uint64(0), prev.Round)
	assert.False(t, prev.Won)
	assert.True(t, prev.Resolving)
	assert.Equal(t, 1, prev.MatchedPairs)

	h.matchNext(t)
	h.matchNext(t)
	prev = h.engine.Reset()
	assert.Equal(t, uint64(1), prev.Round)
	assert.True(t, prev.Won)
	assert.Equal(t, 2, prev.MatchedPairs)
	assert.Equal(t, uint64(2), h.engine.Snapshot().Round)
}

type panicky struct{ game.NopNotifier }

func (panicky) OnFlip()         { panic("speaker unplugged") }
func (panicky) OnMatchSuccess() { panic("speaker unplugged") }

func TestNotifierPanicIsIsolated(t *testing.T) {
	clock := gametest.NewManualScheduler()
	cfg := game.Config{PairCount: 1, SymbolPool: gametest.Symbols(1), MatchDelay: matchDelay, MismatchDelay: mismatchDelay}
	e, err := game.New(cfg, game.WithScheduler(clock), game.WithNotifier(panicky{}))
	require.NoError(t, err)

	ok, err := e.Reveal(0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = e.Reveal(1)
	assert.True(t, ok)
	clock.Advance(matchDelay)

	snap := e.Snapshot()
	assert.Equal(t, 1, snap.MatchedPairs)
	assert.True(t, snap.Won)
}

func TestNotifiers_PanickingMemberDoesNotSkipOthers(t *testing.T) {
	rec := &gametest.Recorder{}
	clock := gametest.NewManualScheduler()
	cfg := game.Config{PairCount: 1, SymbolPool: gametest.Symbols(1), MatchDelay: matchDelay, MismatchDelay: mismatchDelay}
	e, err := game.New(cfg, game.WithScheduler(clock), game.WithNotifier(game.Notifiers{panicky{}, rec}))
	require.NoError(t, err)

	_, _ = e.Reveal(0)
	_, _ = e.Reveal(1)
	clock.Advance(matchDelay)

	assert.Equal(t, []string{
		gametest.Flip, gametest.Flip, gametest.MatchSuccess, gametest.GameComplete, gametest.PresentCompletion,
	}, rec.Events())
}

func TestMatchedPairs_MonotonicUnderRandomPlay(t *testing.T) {
	h := newHarness(t, 8)
	rng := rand.New(rand.NewPCG(3, 5))

	last := 0
	for step := 0; step < 2000 && !h.engine.Snapshot().Won; step++ {
		_, err := h.engine.Reveal(rng.IntN(16))
		require.NoError(t, err)
		if rng.IntN(3) == 0 {
			h.clock.Advance(time.Duration(rng.IntN(1200)) * time.Millisecond)
		}
		snap := h.engine.Snapshot()
		assert.GreaterOrEqual(t, snap.MatchedPairs, last)
		assert.LessOrEqual(t, snap.MatchedPairs, snap.PairCount)
		assert.LessOrEqual(t, len(snap.FaceUp), 2)
		last = snap.MatchedPairs
	}
	assert.LessOrEqual(t, h.rec.Count(gametest.GameComplete), 1)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := game.New(game.Config{PairCount: 16, SymbolPool: gametest.Symbols(15)})
	assert.ErrorIs(t, err, game.ErrNotEnoughSymbols)
}

// countingNotifier is safe for the wall-clock goroutine.
type countingNotifier struct {
	game.NopNotifier
	mu      sync.Mutex
	success int
}

func (c *countingNotifier) OnMatchSuccess() {
	c.mu.Lock()
	c.success++
	c.mu.Unlock()
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.success
}

func TestWallClock_ResolvesPair(t *testing.T) {
	n := &countingNotifier{}
	cfg := game.Config{PairCount: 1, SymbolPool: gametest.Symbols(1), MatchDelay: time.Millisecond, MismatchDelay: time.Millisecond}
	e, err := game.New(cfg, game.WithNotifier(n))
	require.NoError(t, err)
	defer e.Close()

	_, _ = e.Reveal(0)
	_, _ = e.Reveal(1)
	require.Eventually(t, func() bool { return e.Snapshot().Won }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, n.count())
}

// snapshotting reads the engine from inside every callback.
type snapshotting struct {
	engine *game.Engine
	reads  int
	mu     sync.Mutex
}

func (s *snapshotting) read() {
	_ = s.engine.Snapshot()
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
}

func (s *snapshotting) OnFlip()            { s.read() }
func (s *snapshotting) OnMatchSuccess()    { s.read() }
func (s *snapshotting) OnMatchFail()       { s.read() }
func (s *snapshotting) OnGameComplete()    { s.read() }
func (s *snapshotting) PresentCompletion() { s.read() }
func (s *snapshotting) DismissCompletion() { s.read() }

func TestNotifierMaySnapshotUnderConcurrentResets(t *testing.T) {
	n := &snapshotting{}
	cfg := game.Config{PairCount: 2, SymbolPool: gametest.Symbols(2), MatchDelay: time.Millisecond, MismatchDelay: time.Millisecond}
	e, err := game.New(cfg, game.WithNotifier(n))
	require.NoError(t, err)
	n.engine = e
	defer e.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(seed uint64) {
				defer wg.Done()
				rng := rand.New(rand.NewPCG(seed, 1))
				for i := 0; i < 300; i++ {
					if rng.IntN(10) == 0 {
						e.Reset()
						continue
					}
					_, _ = e.Reveal(rng.IntN(4))
					if rng.IntN(4) == 0 {
						time.Sleep(time.Millisecond)
					}
				}
			}(uint64(w))
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("engine deadlocked")
	}
}

type roundWatcher struct {
	game.NopNotifier
	rounds  []uint64
	matched []int
}

func (w *roundWatcher) OnRoundWon(round uint64, matchedPairs int) {
	w.rounds = append(w.rounds, round)
	w.matched = append(w.matched, matchedPairs)
}

func TestRoundObserver_ReportsWonRound(t *testing.T) {
	clock := gametest.NewManualScheduler()
	w := &roundWatcher{}
	cfg := game.Config{PairCount: 2, SymbolPool: gametest.Symbols(2), MatchDelay: matchDelay, MismatchDelay: mismatchDelay}
	e, err := game.New(cfg, game.WithScheduler(clock), game.WithNotifier(w))
	require.NoError(t, err)

	win := func() {
		for _, pos := range gametest.PairPositions(e.Snapshot()) {
			_, _ = e.Reveal(pos[0])
			_, _ = e.Reveal(pos[1])
			clock.Advance(matchDelay)
		}
	}
	win()
	e.Reset()
	win()

	assert.Equal(t, []uint64{0, 1}, w.rounds)
	assert.Equal(t, []int{2, 2}, w.matched)
}

type completionOrder struct {
	game.NopNotifier
	seen []string
}

func (c *completionOrder) OnGameComplete()        { c.seen = append(c.seen, "complete") }
func (c *completionOrder) PresentCompletion()     { c.seen = append(c.seen, "present") }
func (c *completionOrder) DismissCompletion()     {}
func (c *completionOrder) OnRoundWon(uint64, int) { c.seen = append(c.seen, "won") }

func TestRoundObserver_DeliveredAfterPresentation(t *testing.T) {
	clock := gametest.NewManualScheduler()
	o := &completionOrder{}
	cfg := game.Config{PairCount: 1, SymbolPool: gametest.Symbols(1), MatchDelay: matchDelay, MismatchDelay: mismatchDelay}
	e, err := game.New(cfg, game.WithScheduler(clock), game.WithNotifier(game.Notifiers{o}))
	require.NoError(t, err)

	_, _ = e.Reveal(0)
	_, _ = e.Reveal(1)
	clock.Advance(matchDelay)

	assert.Equal(t, []string{"complete", "present", "won"}, o.seen)
}
