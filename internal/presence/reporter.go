// Package presence derives a live participant count and list from room
// membership events. Read-only; a stale count until the next event is fine.
package presence

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/domain"
	"github.com/dkeye/VoiceClient/internal/room"
)

type Reporter struct {
	mu           sync.Mutex
	participants map[domain.ParticipantID]domain.Participant
	logger       zerolog.Logger
}

func NewReporter() *Reporter {
	return &Reporter{
		participants: make(map[domain.ParticipantID]domain.Participant),
		logger:       log.With().Str("module", "presence").Logger(),
	}
}

// Handle consumes one membership event. Wire it to room.TopicPresence.
func (r *Reporter) Handle(ev room.PresenceEvent) {
	r.mu.Lock()
	switch ev.Type {
	case room.PresenceSnapshot:
		r.participants = make(map[domain.ParticipantID]domain.Participant, len(ev.Snapshot))
		for _, p := range ev.Snapshot {
			r.participants[p.ID] = p
		}
	case room.PresenceJoined:
		r.participants[ev.Participant.ID] = ev.Participant
	case room.PresenceLeft:
		delete(r.participants, ev.Participant.ID)
	}
	count := len(r.participants)
	r.mu.Unlock()

	r.logger.Info().Int("participants", count).Msg("membership changed")
}

// Reset empties the list, for room disconnect.
func (r *Reporter) Reset() {
	r.mu.Lock()
	r.participants = make(map[domain.ParticipantID]domain.Participant)
	r.mu.Unlock()
}

func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// List returns participants sorted by identity, local first.
func (r *Reporter) List() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
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
