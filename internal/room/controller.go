// Package room owns the connection to one voice room: signaling, the media
// connection, and the observed track/participant sets. Everything downstream
// (microphone, renderer, presence) reacts to the events it publishes.
package room

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/backend"
	"github.com/dkeye/VoiceClient/internal/core"
	"github.com/dkeye/VoiceClient/internal/domain"
	"github.com/dkeye/VoiceClient/internal/rtc"
	"github.com/dkeye/VoiceClient/internal/signal"
)

var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrConnectAborted   = errors.New("connect aborted")
)

type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

type Options struct {
	SignalURL string
	Room      domain.RoomName
	Identity  domain.Identity
	RTC       webrtc.Configuration
}

type Controller struct {
	mu           sync.Mutex
	state        ConnState
	opts         Options
	bus          EventBus.Bus
	sig          *signal.Client
	media        *rtc.MediaConnection
	tracks       map[domain.TrackID]core.RemoteTrack
	participants map[domain.ParticipantID]domain.Participant
	local        domain.Participant
	logger       zerolog.Logger
}

func NewController(bus EventBus.Bus, opts Options) *Controller {
	return &Controller{
		state:        StateDisconnected,
		opts:         opts,
		bus:          bus,
		tracks:       make(map[domain.TrackID]core.RemoteTrack),
		participants: make(map[domain.ParticipantID]domain.Participant),
		local:        domain.Participant{Identity: opts.Identity, Local: true},
		logger:       log.With().Str("module", "room").Str("room", string(opts.Room)).Logger(),
	}
}

func (c *Controller) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect moves disconnected -> connecting synchronously, then dials
// signaling, negotiates the offer and hands further transitions to transport
// events. Connected is reached on the peer connection's acknowledgement.
// Close during the dial aborts the attempt: the attempt re-checks the state
// at every resumption point and releases its handles instead of installing
// them, so nothing joins or leaks after a teardown.
func (c *Controller) Connect(ctx context.Context, tok *backend.MediaToken) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	roomName := c.opts.Room
	if tok.Room != "" {
		roomName = domain.RoomName(tok.Room)
	}
	c.mu.Unlock()

	c.logger.Info().Str("state", StateConnecting.String()).Msg("connecting")

	media, err := rtc.NewMediaConnection(c.opts.RTC)
	if err != nil {
		c.fail(err)
		return err
	}
	media.OnStateChange(c.handlePeerState)
	media.OnTrack(func(_ context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.handleRemoteTrack(track)
	})
	if err := media.Start(ctx); err != nil {
		media.Close()
		c.fail(err)
		return err
	}
	if !c.stillConnecting() {
		media.Close()
		c.logger.Info().Msg("connect aborted, room closed during media setup")
		return ErrConnectAborted
	}

	sig, err := signal.Dial(ctx, c.signalURL(tok), signal.Events{
		OnRoomState:  c.handleRoomState,
		OnAnswer:     c.handleAnswer,
		OnCandidate:  c.handleRemoteCandidate,
		OnPeerJoined: c.handlePeerJoined,
		OnPeerLeft:   c.handlePeerLeft,
		OnError:      c.handleSignalError,
		OnClosed:     c.handleSignalClosed,
	})
	if err != nil {
		media.Close()
		c.fail(err)
		return err
	}

	media.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		m := signal.CandidateMessage{Candidate: ci.Candidate}
		if ci.SDPMid != nil {
			m.SDPMid = *ci.SDPMid
		}
		if ci.SDPMLineIndex != nil {
			m.SDPMLineIndex = *ci.SDPMLineIndex
		}
		if err := sig.Candidate(m); err != nil {
			c.logger.Warn().Err(err).Msg("send candidate")
		}
	})

	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		sig.Close()
		media.Close()
		c.logger.Info().Msg("connect aborted, room closed during dial")
		return ErrConnectAborted
	}
	c.sig = sig
	c.media = media
	c.mu.Unlock()

	if err := sig.Join(string(roomName), string(c.opts.Identity), tok.Token); err != nil {
		c.fail(err)
		return err
	}

	offer, err := media.CreateOffer()
	if err != nil {
		c.fail(err)
		return err
	}
	if err := sig.Offer(offer.SDP); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

func (c *Controller) stillConnecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnecting
}

func (c *Controller) signalURL(tok *backend.MediaToken) string {
	url := c.opts.SignalURL
	if tok.URL != "" {
		url = tok.URL
	}
	return url
}

// Close releases the signaling socket and the peer connection and publishes
// the disconnect so the microphone publisher and renderer tear down.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	sig, media := c.sig, c.media
	c.sig, c.media = nil, nil
	c.state = StateDisconnected
	c.tracks = make(map[domain.TrackID]core.RemoteTrack)
	c.participants = make(map[domain.ParticipantID]domain.Participant)
	c.mu.Unlock()

	if sig != nil {
		_ = sig.Leave()
		sig.Close()
	}
	if media != nil {
		media.Close()
	}
	c.logger.Info().Msg("room closed")
	c.bus.Publish(TopicDisconnected)
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	if c.state == StateDisconnected {
		// Already torn down locally; late transport callbacks are noise.
		c.mu.Unlock()
		return
	}
	sig, media := c.sig, c.media
	c.sig, c.media = nil, nil
	c.state = StateError
	c.tracks = make(map[domain.TrackID]core.RemoteTrack)
	c.participants = make(map[domain.ParticipantID]domain.Participant)
	c.mu.Unlock()

	if sig != nil {
		sig.Close()
	}
	if media != nil {
		media.Close()
	}
	c.logger.Error().Err(err).Msg("room transport error")
	c.bus.Publish(TopicError, err)
	c.bus.Publish(TopicDisconnected)
}

// Tracks returns a snapshot of the observed track set, local included.
func (c *Controller) Tracks() []core.RemoteTrack {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trackSnapshotLocked()
}

func (c *Controller) trackSnapshotLocked() []core.RemoteTrack {
	out := make([]core.RemoteTrack, 0, len(c.tracks))
	for _, t := range c.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.ID < out[j].Ref.ID })
	return out
}

// Participants returns the current membership, local participant first.
func (c *Controller) Participants() []domain.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantSnapshotLocked()
}

func (c *Controller) participantSnapshotLocked() []domain.Participant {
	out := make([]domain.Participant, 0, len(c.participants))
	for _, p := range c.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Local != out[j].Local {
			return out[i].Local
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// Publish attaches the local audio track to the media connection and records
// its reference in the observed set, flagged local so no sink is created.
func (c *Controller) Publish(track webrtc.TrackLocal) error {
	c.mu.Lock()
	if c.state != StateConnected || c.media == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	media := c.media
	c.mu.Unlock()

	if err := media.PublishTrack(track); err != nil {
		return err
	}

	c.mu.Lock()
	ref := domain.TrackRef{
		ID:          domain.TrackID(track.ID()),
		Participant: c.local.ID,
		Kind:        domain.TrackKindAudio,
		Source:      domain.TrackSourceMicrophone,
		Local:       true,
	}
	c.tracks[ref.ID] = core.RemoteTrack{Ref: ref}
	snapshot := c.trackSnapshotLocked()
	c.mu.Unlock()

	c.logger.Info().Str("track_id", string(ref.ID)).Msg("local track published")
	c.bus.Publish(TopicTracks, snapshot)
	return nil
}

// Published reports the currently attached local track, nil before publish.
func (c *Controller) Published() webrtc.TrackLocal {
	c.mu.Lock()
	media := c.media
	c.mu.Unlock()
	if media == nil {
		return nil
	}
	return media.PublishedTrack()
}

func (c *Controller) handlePeerState(s webrtc.PeerConnectionState) {
	switch s {
	case webrtc.PeerConnectionStateConnected:
		c.mu.Lock()
		if c.state != StateConnecting {
			c.mu.Unlock()
			return
		}
		c.state = StateConnected
		info := Info{Room: c.opts.Room, Local: c.local}
		c.mu.Unlock()
		c.logger.Info().Str("state", StateConnected.String()).Msg("room connected")
		c.bus.Publish(TopicConnected, info)
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		c.fail(errors.New("peer connection " + s.String()))
	}
}

func (c *Controller) handleAnswer(sdp string) {
	c.mu.Lock()
	media := c.media
	c.mu.Unlock()
	if media == nil {
		return
	}
	if err := media.ApplyAnswer(sdp); err != nil {
		c.fail(err)
	}
}

func (c *Controller) handleRemoteCandidate(m signal.CandidateMessage) {
	c.mu.Lock()
	media := c.media
	c.mu.Unlock()
	if media == nil {
		return
	}
	ci := webrtc.ICECandidateInit{Candidate: m.Candidate}
	if m.SDPMid != "" {
		ci.SDPMid = &m.SDPMid
	}
	ci.SDPMLineIndex = &m.SDPMLineIndex
	if err := media.AddICECandidate(ci); err != nil {
		c.logger.Warn().Err(err).Msg("add ice candidate")
	}
}

func (c *Controller) handleRemoteTrack(track *webrtc.TrackRemote) {
	kind := domain.TrackKindOther
	if track.Kind() == webrtc.RTPCodecTypeAudio {
		kind = domain.TrackKindAudio
	}
	ref := domain.TrackRef{
		ID:          domain.TrackID(track.ID()),
		Participant: domain.ParticipantID(track.StreamID()),
		Kind:        kind,
		Source:      domain.TrackSourceUnknown,
		Local:       false,
	}

	c.mu.Lock()
	c.tracks[ref.ID] = core.RemoteTrack{Ref: ref, Media: track}
	snapshot := c.trackSnapshotLocked()
	c.mu.Unlock()

	c.logger.Info().
		Str("track_id", string(ref.ID)).
		Str("participant", string(ref.Participant)).
		Str("kind", string(ref.Kind)).
		Msg("remote track observed")
	c.bus.Publish(TopicTracks, snapshot)
}

func (c *Controller) handleRoomState(m signal.RoomStateMessage) {
	c.mu.Lock()
	c.participants = make(map[domain.ParticipantID]domain.Participant, len(m.Members))
	for _, member := range m.Members {
		p := domain.Participant{
			ID:       domain.ParticipantID(member.ID),
			Identity: domain.Identity(member.Username),
			Local:    member.Username == string(c.opts.Identity),
		}
		if p.Local {
			c.local.ID = p.ID
		}
		c.participants[p.ID] = p
	}
	snapshot := c.participantSnapshotLocked()
	c.mu.Unlock()

	c.logger.Info().Int("count", m.Count).Msg("room state snapshot")
	c.bus.Publish(TopicPresence, PresenceEvent{Type: PresenceSnapshot, Snapshot: snapshot})
}

func (c *Controller) handlePeerJoined(m signal.MemberInfo) {
	p := domain.Participant{
		ID:       domain.ParticipantID(m.ID),
		Identity: domain.Identity(m.Username),
	}
	c.mu.Lock()
	c.participants[p.ID] = p
	c.mu.Unlock()

	c.logger.Info().Str("participant", string(p.ID)).Str("identity", string(p.Identity)).Msg("participant joined")
	c.bus.Publish(TopicPresence, PresenceEvent{Type: PresenceJoined, Participant: p})
}

func (c *Controller) handlePeerLeft(id string) {
	pid := domain.ParticipantID(id)

	c.mu.Lock()
	p, known := c.participants[pid]
	delete(c.participants, pid)
	removed := false
	for tid, t := range c.tracks {
		if t.Ref.Participant == pid && !t.Ref.Local {
			delete(c.tracks, tid)
			removed = true
		}
	}
	var snapshot []core.RemoteTrack
	if removed {
		snapshot = c.trackSnapshotLocked()
	}
	c.mu.Unlock()

	if !known {
		p = domain.Participant{ID: pid}
	}
	c.logger.Info().Str("participant", id).Msg("participant left")
	if removed {
		c.bus.Publish(TopicTracks, snapshot)
	}
	c.bus.Publish(TopicPresence, PresenceEvent{Type: PresenceLeft, Participant: p})
}

func (c *Controller) handleSignalError(msg string) {
	c.fail(errors.New("signal: " + msg))
}

func (c *Controller) handleSignalClosed(err error) {
	c.mu.Lock()
	active := c.state == StateConnecting || c.state == StateConnected
	c.mu.Unlock()
	if active {
		c.fail(err)
	}
}
