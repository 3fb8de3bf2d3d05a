package presence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/VoiceClient/internal/domain"
	"github.com/dkeye/VoiceClient/internal/room"
)

func participant(id, identity string, local bool) domain.Participant {
	return domain.Participant{
		ID:       domain.ParticipantID(id),
		Identity: domain.Identity(identity),
		Local:    local,
	}
}

func TestSnapshotReplacesMembership(t *testing.T) {
	r := NewReporter()

	r.Handle(room.PresenceEvent{Type: room.PresenceJoined, Participant: participant("stale", "old@example.com", false)})
	r.Handle(room.PresenceEvent{
		Type: room.PresenceSnapshot,
		Snapshot: []domain.Participant{
			participant("p1", "test@example.com", true),
			participant("p2", "agent@example.com", false),
		},
	})

	require.Equal(t, 2, r.Count())
	list := r.List()
	require.Len(t, list, 2)
	require.True(t, list[0].Local, "local participant sorts first")
}

func TestJoinAndLeave(t *testing.T) {
	r := NewReporter()

	r.Handle(room.PresenceEvent{Type: room.PresenceJoined, Participant: participant("p1", "a@example.com", false)})
	r.Handle(room.PresenceEvent{Type: room.PresenceJoined, Participant: participant("p2", "b@example.com", false)})
	require.Equal(t, 2, r.Count())

	// joining twice is not double counted
	r.Handle(room.PresenceEvent{Type: room.PresenceJoined, Participant: participant("p1", "a@example.com", false)})
	require.Equal(t, 2, r.Count())

	r.Handle(room.PresenceEvent{Type: room.PresenceLeft, Participant: participant("p1", "a@example.com", false)})
	require.Equal(t, 1, r.Count())
	require.Equal(t, domain.ParticipantID("p2"), r.List()[0].ID)

	// leaving an unknown participant is a no-op
	r.Handle(room.PresenceEvent{Type: room.PresenceLeft, Participant: participant("ghost", "", false)})
	require.Equal(t, 1, r.Count())
}

func TestResetEmptiesList(t *testing.T) {
	r := NewReporter()

	r.Handle(room.PresenceEvent{Type: room.PresenceJoined, Participant: participant("p1", "a@example.com", false)})
	r.Reset()

	require.Zero(t, r.Count())
	require.Empty(t, r.List())
}
