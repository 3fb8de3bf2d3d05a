package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func newDispatchClient(events Events) *Client {
	return &Client{
		send:   make(chan []byte, sendBuffer),
		events: events,
		logger: log.With().Str("module", "signal").Logger(),
	}
}

func TestDispatchRoomState(t *testing.T) {
	var got RoomStateMessage
	c := newDispatchClient(Events{OnRoomState: func(m RoomStateMessage) { got = m }})

	c.handleMessage([]byte(`{
		"type": "room_state",
		"room": "main",
		"members": [
			{"id": "p1", "username": "alice@example.com"},
			{"id": "p2", "username": "bob@example.com"}
		],
		"count": 2
	}`))

	require.Equal(t, "main", got.Room)
	require.Equal(t, 2, got.Count)
	require.Len(t, got.Members, 2)
	require.Equal(t, "alice@example.com", got.Members[0].Username)
}

func TestDispatchAnswerAndCandidate(t *testing.T) {
	var sdp string
	var cand CandidateMessage
	c := newDispatchClient(Events{
		OnAnswer:    func(s string) { sdp = s },
		OnCandidate: func(m CandidateMessage) { cand = m },
	})

	c.handleMessage([]byte(`{"type": "answer", "sdp": "v=0..."}`))
	require.Equal(t, "v=0...", sdp)

	c.handleMessage([]byte(`{"type": "candidate", "candidate": "candidate:1 1 udp", "sdpMid": "0", "sdpMLineIndex": 0}`))
	require.Equal(t, "candidate:1 1 udp", cand.Candidate)
	require.Equal(t, "0", cand.SDPMid)
}

func TestDispatchPeerEvents(t *testing.T) {
	var joined MemberInfo
	var left string
	c := newDispatchClient(Events{
		OnPeerJoined: func(m MemberInfo) { joined = m },
		OnPeerLeft:   func(id string) { left = id },
	})

	c.handleMessage([]byte(`{"type": "peer_joined", "member": {"id": "p3", "username": "carol@example.com"}}`))
	require.Equal(t, "p3", joined.ID)
	require.Equal(t, "carol@example.com", joined.Username)

	c.handleMessage([]byte(`{"type": "peer_left", "id": "p3"}`))
	require.Equal(t, "p3", left)
}

func TestDispatchErrorAndUnknown(t *testing.T) {
	var errMsg string
	c := newDispatchClient(Events{OnError: func(m string) { errMsg = m }})

	c.handleMessage([]byte(`{"type": "error", "error": "room full"}`))
	require.Equal(t, "room full", errMsg)

	// unknown and ack types must not panic with nil callbacks
	c.handleMessage([]byte(`{"type": "pong"}`))
	c.handleMessage([]byte(`{"type": "left"}`))
	c.handleMessage([]byte(`{"type": "potato"}`))
	c.handleMessage([]byte(`not json`))
}

func TestTrySendBackpressure(t *testing.T) {
	c := newDispatchClient(Events{})
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, c.TrySend([]byte("x")))
	}
	require.ErrorIs(t, c.TrySend([]byte("overflow")), ErrBackpressure)
}

func TestDialJoinReachesServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	frames := make(chan []byte, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			frames <- data
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(ctx, url, Events{})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Join("main", "alice@example.com", "media-jwt"))

	select {
	case data := <-frames:
		var m JoinMessage
		require.NoError(t, json.Unmarshal(data, &m))
		require.Equal(t, "join", m.Type)
		require.Equal(t, "main", m.Room)
		require.Equal(t, "alice@example.com", m.Name)
		require.Equal(t, "media-jwt", m.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("join frame never reached the server")
	}
}

func TestOnClosedFiresWhenServerDrops(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ws.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	closed := make(chan error, 1)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(ctx, url, Events{OnClosed: func(err error) { closed <- err }})
	require.NoError(t, err)
	defer c.Close()

	select {
	case err := <-closed:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed never fired")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(ctx, url, Events{})
	require.NoError(t, err)

	c.Close()
	c.Close() // idempotent
	require.Error(t, c.Leave())
}
