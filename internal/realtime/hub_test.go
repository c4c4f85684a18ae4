package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory-game/internal/sound"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil)
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, r.URL.Query().Get("game"))
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, gameID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?game=" + gameID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsToGameOnly(t *testing.T) {
	h, srv := startHub(t)
	a := dial(t, srv, "g1")
	b := dial(t, srv, "g2")

	require.Eventually(t, func() bool { return h.Clients("g1") == 1 && h.Clients("g2") == 1 },
		time.Second, 10*time.Millisecond)

	h.Emit(sound.Event{Type: sound.EventSound, GameID: "g1", Cue: sound.CueCardFlip, Path: sound.CueCardFlip.Path(), Volume: 0.5})

	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := a.ReadMessage()
	require.NoError(t, err)
	var ev sound.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, sound.CueCardFlip, ev.Cue)
	assert.Equal(t, "g1", ev.GameID)

	_ = b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = b.ReadMessage()
	assert.Error(t, err, "other games receive nothing")
}

func TestHub_UnregistersOnClose(t *testing.T) {
	h, srv := startHub(t)
	c := dial(t, srv, "g1")
	require.Eventually(t, func() bool { return h.Clients("g1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return h.Clients("g1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_EmitWithoutClientsDoesNotBlock(t *testing.T) {
	h := NewHub(nil)
	// Run is not started: the queue fills and further events are dropped.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Emit(sound.Event{Type: sound.EventSound, GameID: "g"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked")
	}
}
