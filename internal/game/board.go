// internal/game/board.go
//
// Deck construction and shuffling.
//
// Pairs are built from the symbol pool in pool order so pairing correctness
// never depends on the shuffle. The shuffle is Fisher–Yates over the paired
// cards only; the optional decorative card is pinned to the centre.

package game

import (
	"math/rand/v2"
)

// BuildDeck returns 2*pairCount cards, pair i using pool[i] with ids 2i and
// 2i+1. A non-empty decorative symbol appends one pre-matched card with id
// 2*pairCount. Callers validate pairCount against the pool first.
func BuildDeck(pairCount int, pool []Symbol, decorative Symbol) []Card {
	n := 2 * pairCount
	if decorative != "" {
		n++
	}
	deck := make([]Card, 0, n)
	for i := 0; i < pairCount; i++ {
		deck = append(deck,
			Card{ID: 2 * i, Symbol: pool[i]},
			Card{ID: 2*i + 1, Symbol: pool[i]},
		)
	}
	if decorative != "" {
		deck = append(deck, Card{ID: 2 * pairCount, Symbol: decorative, Matched: true, Decorative: true})
	}
	return deck
}

// Shuffle permutes deck in place with a uniform Fisher–Yates shuffle.
func Shuffle(deck []Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// Deal builds and shuffles a fresh deck for cfg. The decorative card, if any,
// lands on the centre position len(deck)/2.
func Deal(cfg Config, rng *rand.Rand) []Card {
	deck := BuildDeck(cfg.PairCount, cfg.SymbolPool, cfg.Decorative)
	paired := deck[:2*cfg.PairCount]
	Shuffle(paired, rng)
	if cfg.Decorative == "" {
		return deck
	}

	center := len(deck) / 2
	decorative := deck[len(deck)-1]
	copy(deck[center+1:], deck[center:len(deck)-1])
	deck[center] = decorative
	return deck
}
