package domain

type (
	TrackID       string
	ParticipantID string
)

type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindOther TrackKind = "other"
)

type TrackSource string

const (
	TrackSourceMicrophone TrackSource = "microphone"
	TrackSourceUnknown    TrackSource = "unknown"
)

// TrackRef describes one published media track as observed by this client.
// The transport owns the track; we only look at it.
type TrackRef struct {
	ID          TrackID       `json:"track_id"`
	Participant ParticipantID `json:"participant_id"`
	Kind        TrackKind     `json:"kind"`
	Source      TrackSource   `json:"source"`
	Local       bool          `json:"local"`
}

// Participant is an identity connected to the room, local or remote.
type Participant struct {
	ID       ParticipantID `json:"id"`
	Identity Identity      `json:"identity"`
	Local    bool          `json:"local"`
}
