package room

import "github.com/dkeye/VoiceClient/internal/domain"

// Bus topics published by the controller. Payload types are fixed per topic;
// subscribers register func values matching them.
const (
	// TopicConnected carries Info once the transport acknowledges the join.
	TopicConnected = "room.connected"
	// TopicDisconnected carries no payload; downstream owners release their
	// resources when it fires.
	TopicDisconnected = "room.disconnected"
	// TopicError carries an error.
	TopicError = "room.error"
	// TopicTracks carries the full observed track set ([]core.RemoteTrack)
	// after every change.
	TopicTracks = "room.tracks"
	// TopicPresence carries a PresenceEvent.
	TopicPresence = "room.presence"
)

type Info struct {
	Room  domain.RoomName
	Local domain.Participant
}

type PresenceEventType int

const (
	PresenceSnapshot PresenceEventType = iota
	PresenceJoined
	PresenceLeft
)

type PresenceEvent struct {
	Type        PresenceEventType
	Participant domain.Participant   // joined/left
	Snapshot    []domain.Participant // snapshot only
}
