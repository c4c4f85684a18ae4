// internal/events/publisher.go
//
// Optional NATS fan-out of game notifications, for consumers outside the web
// process (analytics, a second UI). Enabled only when NATS_URL is set.

package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-game/internal/sound"
)

// DefaultPrefix roots every subject.
const DefaultPrefix = "memory.game"

// Publisher implements sound.Sink over a NATS connection.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect dials url and returns a publisher using DefaultPrefix.
func Connect(url string) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("memory-game"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return New(nc, DefaultPrefix), nil
}

// New wraps an existing connection.
func New(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{conn: nc, prefix: prefix}
}

// Subject builds "<prefix>.<gameID>.<type>". Dots and wildcards inside the
// id are replaced so the subject keeps exactly that shape.
func Subject(prefix, gameID, typ string) string {
	return prefix + "." + token(gameID) + "." + token(typ)
}

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

func token(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}

// Encode returns the wire payload for ev.
func Encode(ev sound.Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Emit publishes ev. NATS buffers publishes client-side, so this does not
// wait on the network.
func (p *Publisher) Emit(ev sound.Event) {
	data, err := Encode(ev)
	if err != nil {
		log.Error().Err(err).Msg("nats encode event")
		return
	}
	subj := Subject(p.prefix, ev.GameID, ev.Type)
	if err := p.conn.Publish(subj, data); err != nil {
		log.Warn().Err(err).Str("subject", subj).Msg("nats publish")
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
