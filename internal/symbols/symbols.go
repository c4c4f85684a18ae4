// internal/symbols/symbols.go
//
// Provides the icon pool the board draws its pairs from.
//
// Responsibilities:
//   - Load icons from a configured file or fall back to the embedded default list.
//   - Keep file order: the board pairs pool[0], pool[1], ... deterministically.
//   - Expose Pool (equality keys for the engine) and Lookup (colour for views).
//
// File format: one icon per line, "name color", '#' comments and blank lines
// skipped. Names are lowercased and must be unique.
//
// Initialization is run once (sync.Once).

package symbols

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/memory-game/assets"
	"github.com/robalobadob/memory-game/internal/game"
)

// Icon is a renderable symbol.
type Icon struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var (
	initOnce   sync.Once
	icons      []Icon
	byName     map[string]Icon
	initialErr error
)

// Init loads the icon pool exactly once. An empty path selects the embedded
// defaults.
func Init(path string) error {
	initOnce.Do(func() {
		var list []Icon
		var err error
		if path != "" {
			list, err = readIconFile(path)
		} else {
			var raw []byte
			raw, err = assets.Icons()
			if err == nil {
				list, err = Parse(bytes.NewReader(raw))
			}
		}
		if err != nil {
			initialErr = err
			return
		}
		icons = list
		byName = toIndex(list)
	})
	return initialErr
}

// Parse reads an icon list. It rejects duplicates and empty lists.
func Parse(r io.Reader) ([]Icon, error) {
	var out []Icon
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		fields := strings.Fields(s)
		ic := Icon{Name: strings.ToLower(fields[0])}
		if len(fields) > 1 {
			ic.Color = fields[1]
		}
		if _, dup := seen[ic.Name]; dup {
			return nil, fmt.Errorf("symbols: line %d: duplicate icon %q", line, ic.Name)
		}
		seen[ic.Name] = struct{}{}
		out = append(out, ic)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("symbols: icon list is empty")
	}
	return out, nil
}

func readIconFile(path string) ([]Icon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func toIndex(list []Icon) map[string]Icon {
	m := make(map[string]Icon, len(list))
	for _, ic := range list {
		m[ic.Name] = ic
	}
	return m
}

// Pool returns the engine symbols in file order.
func Pool() []game.Symbol {
	return ToSymbols(icons)
}

// ToSymbols converts icons to engine equality keys.
func ToSymbols(list []Icon) []game.Symbol {
	out := make([]game.Symbol, len(list))
	for i, ic := range list {
		out[i] = game.Symbol(ic.Name)
	}
	return out
}

// Lookup returns the icon for a symbol.
func Lookup(s game.Symbol) (Icon, bool) {
	ic, ok := byName[string(s)]
	return ic, ok
}

// Stats returns how many icons are loaded.
func Stats() int { return len(icons) }
