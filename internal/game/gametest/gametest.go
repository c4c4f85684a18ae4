// Package gametest provides deterministic collaborators for engine tests:
// a manually advanced scheduler and a recording notifier.
package gametest

import (
	"sync"
	"time"

	"github.com/robalobadob/memory-game/internal/game"
)

// Notification names recorded by Recorder.
const (
	Flip              = "flip"
	MatchSuccess      = "match_success"
	MatchFail         = "match_fail"
	GameComplete      = "game_complete"
	PresentCompletion = "present_completion"
	DismissCompletion = "dismiss_completion"
)

// ManualScheduler fires callbacks only when Advance moves its clock past
// their deadline. Callbacks run on the goroutine calling Advance.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManualScheduler returns a scheduler at time zero.
func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

// AfterFunc implements game.Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) game.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward by d, running due callbacks in deadline
// order.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	s.mu.Unlock()
	for {
		t := s.nextDue()
		if t == nil {
			return
		}
		t.f()
	}
}

func (s *ManualScheduler) nextDue() *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *manualTimer
	for _, t := range s.timers {
		if t.stopped || t.fired || t.at > s.now {
			continue
		}
		if next == nil || t.at < next.at {
			next = t
		}
	}
	if next != nil {
		next.fired = true
	}
	return next
}

// Pending counts timers that have neither fired nor been stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Recorder logs every notification name in delivery order.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) add(name string) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
}

func (r *Recorder) OnFlip()            { r.add(Flip) }
func (r *Recorder) OnMatchSuccess()    { r.add(MatchSuccess) }
func (r *Recorder) OnMatchFail()       { r.add(MatchFail) }
func (r *Recorder) OnGameComplete()    { r.add(GameComplete) }
func (r *Recorder) PresentCompletion() { r.add(PresentCompletion) }
func (r *Recorder) DismissCompletion() { r.add(DismissCompletion) }

// Events returns a copy of the recorded names.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many times name was recorded.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// PairPositions returns, for each symbol, the positions holding it in snap.
// Decorative cards are skipped.
func PairPositions(snap game.Snapshot) map[game.Symbol][]int {
	out := make(map[game.Symbol][]int)
	for i, c := range snap.Cards {
		if c.Decorative {
			continue
		}
		out[c.Symbol] = append(out[c.Symbol], i)
	}
	return out
}

// Mismatch returns two positions holding different, unmatched symbols.
func Mismatch(snap game.Snapshot) (int, int) {
	first := -1
	for i, c := range snap.Cards {
		if c.Matched {
			continue
		}
		if first < 0 {
			first = i
			continue
		}
		if c.Symbol != snap.Cards[first].Symbol {
			return first, i
		}
	}
	return -1, -1
}

// Symbols returns n distinct test symbols.
func Symbols(n int) []game.Symbol {
	out := make([]game.Symbol, n)
	for i := range out {
		out[i] = game.Symbol(string(rune('a'+i%26)) + string(rune('A'+i/26)))
	}
	return out
}
