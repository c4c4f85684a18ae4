package game

import (
	"fmt"
	"strings"
	"time"
)

// Variant is a named board preset.
type Variant struct {
	Name          string
	Rows, Cols    int
	PairCount     int
	MatchDelay    time.Duration
	MismatchDelay time.Duration
	Decorative    bool // odd grid; the last pool symbol becomes the centre tile
}

var (
	// Classic resolves a match faster than a miss so the player gets longer
	// to memorize a mismatched pair.
	Classic = Variant{
		Name: "classic", Rows: 4, Cols: 5, PairCount: 10,
		MatchDelay: 500 * time.Millisecond, MismatchDelay: 1000 * time.Millisecond,
	}
	// Center uses one delay for both outcomes.
	Center = Variant{
		Name: "center", Rows: 5, Cols: 5, PairCount: 12, Decorative: true,
		MatchDelay: 1000 * time.Millisecond, MismatchDelay: 1000 * time.Millisecond,
	}
)

// Variants lists the presets in display order.
func Variants() []Variant { return []Variant{Classic, Center} }

// LookupVariant resolves a preset by name; empty means Classic.
func LookupVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Classic.Name:
		return Classic, nil
	case Center.Name:
		return Center, nil
	}
	return Variant{}, fmt.Errorf("unknown variant %q", name)
}

// Config builds an engine config drawing pairs from the head of pool and, for
// decorative variants, the centre tile from its last entry.
func (v Variant) Config(pool []Symbol) (Config, error) {
	cfg := Config{
		PairCount:     v.PairCount,
		SymbolPool:    pool,
		MatchDelay:    v.MatchDelay,
		MismatchDelay: v.MismatchDelay,
	}
	if v.Decorative {
		if len(pool) <= v.PairCount {
			return Config{}, fmt.Errorf("%w: variant %s needs %d symbols, have %d",
				ErrNotEnoughSymbols, v.Name, v.PairCount+1, len(pool))
		}
		cfg.Decorative = pool[len(pool)-1]
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
