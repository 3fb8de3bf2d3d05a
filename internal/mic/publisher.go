// Package mic publishes the local audio source into the room once per
// connection. The sequence is strictly ordered: enumerate capture sources,
// enable and publish, then verify the publication actually landed.
package mic

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateIdle State = iota
	StateEnabling
	StateVerifying
	StatePublished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnabling:
		return "enabling"
	case StateVerifying:
		return "verifying"
	case StatePublished:
		return "published"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Participant is the slice of the room controller the publisher needs.
type Participant interface {
	Publish(track webrtc.TrackLocal) error
	Published() webrtc.TrackLocal
}

type Options struct {
	SourceID string
	OggPath  string
	// VerifyTimeout bounds the post-publish poll, VerifyInterval its step.
	VerifyTimeout  time.Duration
	VerifyInterval time.Duration
}

type Publisher struct {
	mu      sync.Mutex
	state   State
	reason  string
	running bool
	part    Participant
	opts    Options
	source  Source
	logger  zerolog.Logger
}

func NewPublisher(part Participant, opts Options) *Publisher {
	if opts.VerifyTimeout == 0 {
		opts.VerifyTimeout = 5 * time.Second
	}
	if opts.VerifyInterval == 0 {
		opts.VerifyInterval = 200 * time.Millisecond
	}
	return &Publisher{
		state:  StateIdle,
		part:   part,
		opts:   opts,
		logger: log.With().Str("module", "mic").Logger(),
	}
}

func (p *Publisher) State() (State, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.reason
}

func (p *Publisher) setState(s State, reason string) {
	p.mu.Lock()
	p.state = s
	p.reason = reason
	p.mu.Unlock()
	ev := p.logger.Info()
	if s == StateFailed {
		ev = p.logger.Error()
	}
	ev.Str("state", s.String()).Str("reason", reason).Msg("microphone state")
}

// Run executes the publish sequence once. Failure is non-fatal to the room:
// the state is reported and the session continues without a local track.
// A second Run while one is active is a no-op; Reset re-arms it after a
// disconnect so a reconnect re-triggers the sequence.
func (p *Publisher) Run(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.setState(StateEnabling, "")

	// Informational only: no capture sources is not a publish blocker.
	sources := Sources(p.opts.OggPath)
	if len(sources) == 0 {
		p.logger.Warn().Msg("no capture sources found")
	}
	for _, s := range sources {
		p.logger.Info().Str("id", s.ID).Str("label", s.Label).Msg("capture source")
	}

	source, err := OpenSource(p.opts.SourceID, p.opts.OggPath)
	if err != nil {
		p.setState(StateFailed, "open capture source: "+err.Error())
		return
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"microphone",
		"voiceclient",
	)
	if err != nil {
		_ = source.Close()
		p.setState(StateFailed, "create local track: "+err.Error())
		return
	}

	if err := p.part.Publish(track); err != nil {
		_ = source.Close()
		p.setState(StateFailed, "publish: "+err.Error())
		return
	}

	p.mu.Lock()
	p.source = source
	p.mu.Unlock()
	go p.pump(ctx, source, track)

	p.setState(StateVerifying, "")
	if err := p.verify(ctx); err != nil {
		p.setState(StateFailed, err.Error())
		return
	}
	p.setState(StatePublished, "")
}

// verify polls the local participant until the publication is non-empty.
func (p *Publisher) verify(ctx context.Context) error {
	deadline := time.NewTimer(p.opts.VerifyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(p.opts.VerifyInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.New("microphone track publication not confirmed")
		case <-tick.C:
			if p.part.Published() != nil {
				return nil
			}
		}
	}
}

func (p *Publisher) pump(ctx context.Context, source Source, track *webrtc.TrackLocalStaticSample) {
	defer func() { _ = source.Close() }()
	for {
		if ctx.Err() != nil {
			return
		}
		sample, err := source.Read()
		if errors.Is(err, io.EOF) {
			p.logger.Info().Str("source", source.Label()).Msg("capture source drained")
			return
		}
		if err != nil {
			p.logger.Error().Err(err).Msg("capture read error")
			return
		}
		if err := track.WriteSample(sample); err != nil {
			p.logger.Error().Err(err).Msg("write sample")
			return
		}
	}
}

// Reset stops the capture pump and re-arms the publisher. The room calls it
// on disconnect so the next connected event runs the sequence again.
func (p *Publisher) Reset() {
	p.mu.Lock()
	source := p.source
	p.source = nil
	p.running = false
	p.state = StateIdle
	p.reason = ""
	p.mu.Unlock()
	if source != nil {
		_ = source.Close()
	}
	p.logger.Info().Msg("microphone reset")
}
