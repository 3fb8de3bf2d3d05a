// Package core holds the interfaces the client's components meet on.
// No transport or lifecycle logic here; adapters own their resources.
package core

import (
	"github.com/pion/interceptor"
	"github.com/pion/rtp"

	"github.com/dkeye/VoiceClient/internal/domain"
)

// MediaStream is the readable side of one subscribed remote track.
// *webrtc.TrackRemote satisfies it.
type MediaStream interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// RemoteTrack pairs track meta-data with its media. The transport owns the
// media; consumers must not Close it.
type RemoteTrack struct {
	Ref   domain.TrackRef
	Media MediaStream
}

// PlaybackSink is a live audio-output handle bound to one remote track.
// Created by the renderer, at most one per track id.
type PlaybackSink interface {
	Attach(MediaStream)
	// Play starts playback. A failure is non-fatal: the sink stays attached
	// and Play may be retried on the next user gesture.
	Play() error
	Close()
}
