package sound

import (
	"sync"
	"time"
)

// Notifier turns engine notifications into cue events for one game. It
// implements game.Notifier and game.CompletionPresenter.
type Notifier struct {
	gameID string
	sink   Sink
	now    func() time.Time

	mu       sync.RWMutex
	settings Settings
	playing  bool // background music
}

// NewNotifier binds a game id and sink with the given settings.
func NewNotifier(gameID string, settings Settings, sink Sink) *Notifier {
	return &Notifier{gameID: gameID, sink: sink, settings: settings, now: time.Now}
}

// Settings returns the current volume settings.
func (n *Notifier) Settings() Settings {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.settings
}

// SetSettings replaces the volume settings and emits the new effective
// levels so a playing music loop follows the change.
func (n *Notifier) SetSettings(s Settings) {
	n.mu.Lock()
	n.settings = s
	n.mu.Unlock()
	n.sink.Emit(Event{
		Type:   EventVolume,
		GameID: n.gameID,
		Volume: s.Volume(Music),
		Levels: &Levels{Music: s.Volume(Music), Effects: s.Volume(Effects)},
		At:     n.now(),
	})
}

func (n *Notifier) OnFlip()         { n.play(CueCardFlip) }
func (n *Notifier) OnMatchSuccess() { n.play(CueMatchSuccess) }
func (n *Notifier) OnMatchFail()    { n.play(CueMatchFail) }
func (n *Notifier) OnGameComplete() { n.play(CueGameComplete) }

// StartMusic emits the looping background track.
func (n *Notifier) StartMusic() {
	n.mu.Lock()
	n.playing = true
	n.mu.Unlock()
	n.play(CueBackgroundMusic)
}

// MusicPlaying reports whether the background track is on.
func (n *Notifier) MusicPlaying() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.playing
}

// ToggleMusic pauses a playing track or starts a paused one, and returns
// the new state.
func (n *Notifier) ToggleMusic() bool {
	n.mu.Lock()
	if !n.playing {
		n.mu.Unlock()
		n.StartMusic()
		return true
	}
	n.playing = false
	n.mu.Unlock()
	n.sink.Emit(Event{
		Type:   EventMusicPause,
		GameID: n.gameID,
		Cue:    CueBackgroundMusic,
		Path:   CueBackgroundMusic.Path(),
		At:     n.now(),
	})
	return false
}

func (n *Notifier) PresentCompletion() {
	n.sink.Emit(Event{Type: EventCompletionOpen, GameID: n.gameID, At: n.now()})
}

func (n *Notifier) DismissCompletion() {
	n.sink.Emit(Event{Type: EventCompletionDismissed, GameID: n.gameID, At: n.now()})
}

func (n *Notifier) play(c Cue) {
	n.sink.Emit(Event{
		Type:   EventSound,
		GameID: n.gameID,
		Cue:    c,
		Path:   c.Path(),
		Volume: n.Settings().Volume(c.Channel()),
		Loop:   c.Loop(),
		At:     n.now(),
	})
}
