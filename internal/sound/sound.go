// internal/sound/sound.go
//
// Audio model for the game: cue catalog, volume settings and the events the
// browser turns into actual playback.
//
// Effective volume is 0 when muted, otherwise master × channel volume.

package sound

import (
	"errors"
	"fmt"
	"time"
)

// Cue names a sound asset.
type Cue string

const (
	CueBackgroundMusic Cue = "background-music"
	CueCardFlip        Cue = "card-flip"
	CueMatchSuccess    Cue = "match-success"
	CueMatchFail       Cue = "match-fail"
	CueGameComplete    Cue = "game-complete"
)

// BasePath is where the client serves sound files from.
const BasePath = "/sounds/"

// Channel groups cues under one volume slider.
type Channel int

const (
	Music Channel = iota
	Effects
)

// Catalog lists every available cue.
func Catalog() []Cue {
	return []Cue{CueBackgroundMusic, CueCardFlip, CueMatchSuccess, CueMatchFail, CueGameComplete}
}

// Known reports whether name is in the catalog.
func Known(name string) bool {
	for _, c := range Catalog() {
		if string(c) == name {
			return true
		}
	}
	return false
}

func (c Cue) Channel() Channel {
	if c == CueBackgroundMusic {
		return Music
	}
	return Effects
}

func (c Cue) Loop() bool { return c == CueBackgroundMusic }

func (c Cue) Path() string { return BasePath + string(c) + ".mp3" }

// Settings are the user-adjustable volume controls.
type Settings struct {
	MasterVolume  float64 `json:"masterVolume"`
	MusicVolume   float64 `json:"musicVolume"`
	EffectsVolume float64 `json:"effectsVolume"`
	Muted         bool    `json:"isMuted"`
}

// DefaultSettings matches what a fresh client starts with.
func DefaultSettings() Settings {
	return Settings{MasterVolume: 0.5, MusicVolume: 0.4, EffectsVolume: 1.0}
}

var ErrVolumeRange = errors.New("volume must be within [0,1]")

// Validate checks every slider is within [0,1].
func (s Settings) Validate() error {
	for name, v := range map[string]float64{
		"masterVolume":  s.MasterVolume,
		"musicVolume":   s.MusicVolume,
		"effectsVolume": s.EffectsVolume,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrVolumeRange, name, v)
		}
	}
	return nil
}

// Volume returns the effective playback volume for ch.
func (s Settings) Volume(ch Channel) float64 {
	if s.Muted {
		return 0
	}
	if ch == Music {
		return s.MasterVolume * s.MusicVolume
	}
	return s.MasterVolume * s.EffectsVolume
}

// Event types carried on the notification stream.
const (
	EventSound               = "sound"
	EventCompletionOpen      = "completion_open"
	EventCompletionDismissed = "completion_dismissed"
	EventVolume              = "volume"
	EventMusicPause          = "music_pause"
)

// Levels are the effective volumes per channel after a settings change.
type Levels struct {
	Music   float64 `json:"music"`
	Effects float64 `json:"effects"`
}

// Event is one item on a game's notification stream.
type Event struct {
	Type   string    `json:"type"`
	GameID string    `json:"gameId"`
	Cue    Cue       `json:"cue,omitempty"`
	Path   string    `json:"path,omitempty"`
	Volume float64   `json:"volume"`
	Loop   bool      `json:"loop,omitempty"`
	Levels *Levels   `json:"levels,omitempty"`
	At     time.Time `json:"at"`
}

// Sink consumes events. Emit must not block for long; it runs on the
// engine's notification path.
type Sink interface {
	Emit(Event)
}

// Sinks fans an event out to every member.
type Sinks []Sink

func (ss Sinks) Emit(ev Event) {
	for _, s := range ss {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }
