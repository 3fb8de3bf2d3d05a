package render

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/core"
	"github.com/dkeye/VoiceClient/internal/domain"
)

// ErrPlaybackBlocked is the autoplay analog: the output refused to start and
// needs a user gesture (Resume) before playback can begin. The sink stays
// attached so the retry needs no re-negotiation. It is part of the Output
// contract: device-backed Output implementations return it from OpenStream
// while the device is held; DiscardOutput never blocks.
var ErrPlaybackBlocked = errors.New("playback blocked, waiting for user gesture")

// SinkFactory builds one playback sink per remote audio track.
type SinkFactory func(ref domain.TrackRef) core.PlaybackSink

// Output is where drained audio ends up, an output-device abstraction.
type Output interface {
	// OpenStream claims the output for one track. It fails with
	// ErrPlaybackBlocked while the output needs a user gesture.
	OpenStream(trackID domain.TrackID) error
	// Write consumes one RTP payload worth of audio.
	Write(trackID domain.TrackID, payload []byte) error
	CloseStream(trackID domain.TrackID)
}

// rtpSink drains RTP from a remote track into an Output. The drain loop
// starts on the first successful Play and stops on Close.
type rtpSink struct {
	ref    domain.TrackRef
	out    Output
	logger zerolog.Logger

	mu      sync.Mutex
	media   core.MediaStream
	playing bool
	cancel  context.CancelFunc
}

// NewSinkFactory wires sinks to the given output.
func NewSinkFactory(out Output) SinkFactory {
	return func(ref domain.TrackRef) core.PlaybackSink {
		return &rtpSink{
			ref:    ref,
			out:    out,
			logger: log.With().Str("module", "render").Str("track_id", string(ref.ID)).Logger(),
		}
	}
}

func (s *rtpSink) Attach(media core.MediaStream) {
	s.mu.Lock()
	s.media = media
	s.mu.Unlock()
}

func (s *rtpSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		return nil
	}
	if s.media == nil {
		return errors.New("no media attached")
	}
	if err := s.out.OpenStream(s.ref.ID); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.playing = true
	go s.drain(ctx, s.media)
	s.logger.Info().Msg("playback started")
	return nil
}

func (s *rtpSink) drain(ctx context.Context, media core.MediaStream) {
	defer s.out.CloseStream(s.ref.ID)
	for {
		if ctx.Err() != nil {
			return
		}
		pkt, _, err := media.ReadRTP()
		if err != nil {
			s.logger.Info().Err(err).Msg("track drained")
			return
		}
		if err := s.out.Write(s.ref.ID, pkt.Payload); err != nil {
			s.logger.Error().Err(err).Msg("output write error")
			return
		}
	}
}

func (s *rtpSink) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.playing = false
	s.media = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.logger.Info().Msg("sink closed")
}

// DiscardOutput accepts everything and never blocks; the default when no
// real audio device integration is configured.
type DiscardOutput struct{}

func (DiscardOutput) OpenStream(domain.TrackID) error    { return nil }
func (DiscardOutput) Write(domain.TrackID, []byte) error { return nil }
func (DiscardOutput) CloseStream(domain.TrackID)         {}
