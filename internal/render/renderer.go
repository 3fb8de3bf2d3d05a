// Package render reconciles the observed remote track set against the live
// playback sinks. One sink per remote audio track, never one for a local
// track, and teardown leaves nothing dangling.
package render

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/core"
	"github.com/dkeye/VoiceClient/internal/domain"
)

type Renderer struct {
	mu      sync.Mutex
	newSink SinkFactory
	sinks   map[domain.TrackID]core.PlaybackSink
	blocked map[domain.TrackID]struct{}
	logger  zerolog.Logger
}

func NewRenderer(newSink SinkFactory) *Renderer {
	return &Renderer{
		newSink: newSink,
		sinks:   make(map[domain.TrackID]core.PlaybackSink),
		blocked: make(map[domain.TrackID]struct{}),
		logger:  log.With().Str("module", "render").Logger(),
	}
}

// Reconcile brings the sink set in line with the observed tracks. Running it
// twice on the same snapshot creates and destroys nothing. Playback-start
// failures are non-fatal; the sink stays attached for Resume.
func (r *Renderer) Reconcile(observed []core.RemoteTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[domain.TrackID]core.RemoteTrack, len(observed))
	for _, t := range observed {
		if t.Ref.Local {
			continue // never render our own voice back
		}
		if t.Ref.Kind != domain.TrackKindAudio {
			continue
		}
		want[t.Ref.ID] = t
	}

	for id, t := range want {
		if _, ok := r.sinks[id]; ok {
			continue
		}
		sink := r.newSink(t.Ref)
		sink.Attach(t.Media)
		if err := sink.Play(); err != nil {
			r.logger.Warn().Err(err).
				Str("track_id", string(id)).
				Msg("playback did not start, will retry on user gesture")
			r.blocked[id] = struct{}{}
		}
		r.sinks[id] = sink
		r.logger.Info().Str("track_id", string(id)).Str("participant", string(t.Ref.Participant)).Msg("sink created")
	}

	for id, sink := range r.sinks {
		if _, ok := want[id]; ok {
			continue
		}
		sink.Close()
		delete(r.sinks, id)
		delete(r.blocked, id)
		r.logger.Info().Str("track_id", string(id)).Msg("sink destroyed")
	}
}

// Resume retries playback for sinks that were blocked. Call it on a user
// gesture.
func (r *Renderer) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.blocked {
		sink, ok := r.sinks[id]
		if !ok {
			delete(r.blocked, id)
			continue
		}
		if err := sink.Play(); err != nil {
			r.logger.Warn().Err(err).Str("track_id", string(id)).Msg("playback still blocked")
			continue
		}
		delete(r.blocked, id)
		r.logger.Info().Str("track_id", string(id)).Msg("playback resumed")
	}
}

// Close destroys every sink. Called on room disconnect and shutdown.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sink := range r.sinks {
		sink.Close()
		delete(r.sinks, id)
	}
	r.blocked = make(map[domain.TrackID]struct{})
	r.logger.Info().Msg("all sinks closed")
}

// SinkIDs returns the track ids with a live sink, sorted order not
// guaranteed.
func (r *Renderer) SinkIDs() []domain.TrackID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TrackID, 0, len(r.sinks))
	for id := range r.sinks {
		out = append(out, id)
	}
	return out
}
