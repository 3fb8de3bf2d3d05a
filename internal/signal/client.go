package signal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
	pingPeriod   = 54 * time.Second
)

// Events are the callbacks a connection owner wires before dialing. Nil
// callbacks are skipped. All callbacks run on the read pump goroutine.
type Events struct {
	OnRoomState  func(RoomStateMessage)
	OnAnswer     func(sdp string)
	OnCandidate  func(CandidateMessage)
	OnPeerJoined func(MemberInfo)
	OnPeerLeft   func(id string)
	OnError      func(msg string)
	OnClosed     func(err error)
}

// Client is one signaling connection with buffered write and read pumps.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	events Events
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// Dial opens the signaling socket and starts both pumps. The context bounds
// the dial and, once done, tears the connection down.
func Dial(ctx context.Context, url string, events Events) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:   ws,
		send:   make(chan []byte, sendBuffer),
		events: events,
		logger: log.With().Str("module", "signal").Logger(),
	}
	go c.writePump(ctx)
	go c.readPump(ctx)
	return c, nil
}

func (c *Client) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Client) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error().Err(err).Msg("sendJSON marshal")
		return err
	}
	return c.TrySend(b)
}

func (c *Client) Join(room, name, token string) error {
	return c.sendJSON(JoinMessage{Type: "join", Room: room, Name: name, Token: token})
}

func (c *Client) Leave() error {
	return c.sendJSON(LeaveMessage{Type: "leave"})
}

func (c *Client) Offer(sdp string) error {
	return c.sendJSON(OfferMessage{Type: "offer", SDP: sdp})
}

func (c *Client) Candidate(m CandidateMessage) error {
	m.Type = "candidate"
	return c.sendJSON(m)
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *Client) writePump(ctx context.Context) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("writePump ctx done")
			return
		case <-ping.C:
			if err := c.sendJSON(PingMessage{Type: "ping"}); err != nil {
				c.logger.Warn().Err(err).Msg("keepalive ping dropped")
			}
		case data, ok := <-c.send:
			if !ok {
				c.logger.Warn().Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.logger.Error().Err(err).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error().Err(err).Msg("writePump write error")
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.logger.Info().Msg("readPump closing")
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("readPump ctx done")
			if c.events.OnClosed != nil {
				c.events.OnClosed(ctx.Err())
			}
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				c.logger.Error().Err(err).Msg("readPump read error")
				if c.events.OnClosed != nil {
					c.events.OnClosed(err)
				}
				return
			}
			c.handleMessage(data)
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Error().Err(err).Msg("bad json")
		return
	}

	switch env.Type {
	case "room_state":
		var m RoomStateMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Error().Err(err).Msg("bad room_state payload")
			return
		}
		if c.events.OnRoomState != nil {
			c.events.OnRoomState(m)
		}
	case "answer":
		var m AnswerMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Error().Err(err).Msg("bad answer payload")
			return
		}
		if c.events.OnAnswer != nil {
			c.events.OnAnswer(m.SDP)
		}
	case "candidate":
		var m CandidateMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Error().Err(err).Msg("bad candidate payload")
			return
		}
		if c.events.OnCandidate != nil {
			c.events.OnCandidate(m)
		}
	case "peer_joined":
		var m PeerJoinedMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Error().Err(err).Msg("bad peer_joined payload")
			return
		}
		if c.events.OnPeerJoined != nil {
			c.events.OnPeerJoined(m.Member)
		}
	case "peer_left":
		var m PeerLeftMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Error().Err(err).Msg("bad peer_left payload")
			return
		}
		if c.events.OnPeerLeft != nil {
			c.events.OnPeerLeft(m.ID)
		}
	case "error":
		var m ErrorMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Error().Err(err).Msg("bad error payload")
			return
		}
		if c.events.OnError != nil {
			c.events.OnError(m.Error)
		}
	case "pong", "left":
		// acknowledgements, nothing to dispatch
	default:
		c.logger.Warn().Str("type", env.Type).Msg("unknown signal")
	}
}
