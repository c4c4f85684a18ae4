// internal/game/types.go
//
// Core type definitions for the memory game engine.
// Defines:
//   - Symbol: opaque equality key shared by the two cards of a pair.
//   - Card: a single tile in the deck.
//   - Config: construction-time parameters for a session.
//   - Snapshot: read-only projection handed to renderers.

package game

import (
	"errors"
	"fmt"
	"time"
)

// Symbol identifies the icon printed on a card. Two cards match when their
// symbols are equal.
type Symbol string

// Card is one tile of the deck.
type Card struct {
	ID         int    // Stable identity, assigned at build time (never recomputed).
	Symbol     Symbol // Equality key.
	Matched    bool   // Monotonic false → true.
	Decorative bool   // Unpaired centre tile; always matched.
}

var (
	ErrInvalidPairCount   = errors.New("pair count must be at least 1")
	ErrNotEnoughSymbols   = errors.New("pair count exceeds symbol pool")
	ErrDuplicateSymbol    = errors.New("symbol pool contains duplicates")
	ErrInvalidDelay       = errors.New("resolution delays must not be negative")
	ErrPositionOutOfRange = errors.New("position out of range")
)

// Config is accepted at engine construction.
type Config struct {
	PairCount     int
	SymbolPool    []Symbol
	MatchDelay    time.Duration
	MismatchDelay time.Duration

	// Decorative, when non-empty, adds one pre-matched card placed at the
	// centre of the deck. It must not be one of the paired symbols.
	Decorative Symbol
}

// Validate reports configuration errors. A session is never created from an
// invalid config; the pool is not silently truncated.
func (c Config) Validate() error {
	if c.PairCount < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidPairCount, c.PairCount)
	}
	if c.PairCount > len(c.SymbolPool) {
		return fmt.Errorf("%w: %d pairs, %d symbols", ErrNotEnoughSymbols, c.PairCount, len(c.SymbolPool))
	}
	if c.MatchDelay < 0 || c.MismatchDelay < 0 {
		return ErrInvalidDelay
	}
	seen := make(map[Symbol]struct{}, c.PairCount+1)
	for _, s := range c.SymbolPool[:c.PairCount] {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateSymbol, s)
		}
		seen[s] = struct{}{}
	}
	if c.Decorative != "" {
		if _, dup := seen[c.Decorative]; dup {
			return fmt.Errorf("%w: decorative %q is also paired", ErrDuplicateSymbol, c.Decorative)
		}
	}
	return nil
}

// Snapshot is a deep copy of the session, safe to keep after the engine
// moves on.
type Snapshot struct {
	Round          uint64 // Incremented on every reset.
	Cards          []Card
	FaceUp         []int // Positions face-up and unresolved, in reveal order.
	MatchedPairs   int
	PairCount      int
	Resolving      bool
	Won            bool
	CompletionOpen bool
}

// IsFaceUp reports whether position is among the unresolved face-up cards.
func (s Snapshot) IsFaceUp(position int) bool {
	for _, p := range s.FaceUp {
		if p == position {
			return true
		}
	}
	return false
}
