// Package signal is the client side of the voice server's WebSocket
// signaling protocol: JSON envelopes dispatched on a "type" field.
package signal

// Envelope carries only the discriminator; payloads re-parse the full frame.
type Envelope struct {
	Type string `json:"type"`
}

type JoinMessage struct {
	Type  string `json:"type"`
	Room  string `json:"room"`
	Name  string `json:"name,omitempty"`
	Token string `json:"token"`
}

type LeaveMessage struct {
	Type string `json:"type"`
}

type PingMessage struct {
	Type string `json:"type"`
}

type OfferMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type AnswerMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type CandidateMessage struct {
	Type          string `json:"type"`
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
}

type MemberInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RoomStateMessage is the membership snapshot the server sends on join.
type RoomStateMessage struct {
	Type    string       `json:"type"`
	Room    string       `json:"room"`
	Members []MemberInfo `json:"members"`
	Count   int          `json:"count"`
}

type PeerJoinedMessage struct {
	Type   string     `json:"type"`
	Member MemberInfo `json:"member"`
}

type PeerLeftMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
