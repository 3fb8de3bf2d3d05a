// Package rtc wraps the pion PeerConnection for the client role: we create
// the offer, the voice server answers.
package rtc

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type MediaConnection struct {
	pc       *webrtc.PeerConnection
	audioTrx *webrtc.RTPTransceiver
	cancel   context.CancelFunc

	onICE   func(webrtc.ICECandidateInit)
	onTrack func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onState func(webrtc.PeerConnectionState)
}

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

func NewMediaConnection(cfg webrtc.Configuration) (*MediaConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	// One sendrecv audio transceiver negotiated up front. The microphone
	// track is attached later via ReplaceTrack, without renegotiation.
	trx, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	})
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	return &MediaConnection{pc: pc, audioTrx: trx}, nil
}

func (c *MediaConnection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateDisconnected ||
			s == webrtc.ICEConnectionStateFailed ||
			s == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer_connection_state", s.String()).Msg("Peer state")
		if c.onState != nil {
			c.onState(s)
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if c.onTrack != nil {
			c.onTrack(ctx, track, receiver)
		}
	})

	return nil
}

// CreateOffer builds the local description and waits for ICE gathering, so
// the SDP carries the candidates.
func (c *MediaConnection) CreateOffer() (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	<-gatherComplete
	return c.pc.LocalDescription(), nil
}

func (c *MediaConnection) ApplyAnswer(sdp string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

func (c *MediaConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

// PublishTrack attaches the local audio track to the negotiated transceiver.
func (c *MediaConnection) PublishTrack(track webrtc.TrackLocal) error {
	return c.audioTrx.Sender().ReplaceTrack(track)
}

// PublishedTrack returns the currently attached local track, nil before
// publish succeeded.
func (c *MediaConnection) PublishedTrack() webrtc.TrackLocal {
	sender := c.audioTrx.Sender()
	if sender == nil {
		return nil
	}
	return sender.Track()
}

func (c *MediaConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.onICE = fn
}

// OnTrack sets the application-level callback for remote tracks.
func (c *MediaConnection) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.onTrack = fn
}

// OnStateChange sets the callback for peer connection state transitions.
func (c *MediaConnection) OnStateChange(fn func(webrtc.PeerConnectionState)) {
	c.onState = fn
}

func (c *MediaConnection) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.pc != nil {
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("close error")
		} else {
			log.Info().Str("module", "rtc").Msg("closed")
		}
	}
}
