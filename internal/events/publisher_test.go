package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory-game/internal/sound"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "memory.game.abc.sound", Subject(DefaultPrefix, "abc", sound.EventSound))
	assert.Equal(t, "memory.game.a_b_c.completion_open", Subject(DefaultPrefix, "a.b*c", sound.EventCompletionOpen))
	assert.Equal(t, "x._._", Subject("x", "", ""))
}

func TestEncode(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	data, err := Encode(sound.Event{
		Type: sound.EventSound, GameID: "g1", Cue: sound.CueMatchFail,
		Path: sound.CueMatchFail.Path(), Volume: 0.5, At: at,
	})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "sound", m["type"])
	assert.Equal(t, "g1", m["gameId"])
	assert.Equal(t, "match-fail", m["cue"])
	assert.Equal(t, "/sounds/match-fail.mp3", m["path"])
	assert.InDelta(t, 0.5, m["volume"], 1e-9)
	assert.NotContains(t, m, "loop")
}

func TestNew_DefaultPrefix(t *testing.T) {
	p := New(nil, "")
	assert.Equal(t, DefaultPrefix, p.prefix)
}

func TestClose_NilSafe(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, p.Close)
}
