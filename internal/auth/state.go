// Package auth owns authentication state. Transitions are expressed as a
// pure reducer over events so they can be tested without any I/O.
package auth

import "github.com/dkeye/VoiceClient/internal/creds"

type Phase int

const (
	PhaseAnonymous Phase = iota
	PhaseAuthenticating
	PhaseAuthenticated
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the tagged auth variant. Credential is set only in
// PhaseAuthenticated, Err only in PhaseError.
type State struct {
	Phase      Phase
	Credential *creds.Credential
	Err        string
}

type Event interface{ isAuthEvent() }

type (
	// LoginStarted fires when credentials were submitted.
	LoginStarted struct{}
	// LoginSucceeded carries the persisted credential.
	LoginSucceeded struct{ Credential *creds.Credential }
	// LoginFailed carries the user-visible message.
	LoginFailed struct{ Message string }
	// Restored fires when a persisted credential was found at startup.
	Restored struct{ Credential *creds.Credential }
	// LoggedOut fires after the persisted credential was cleared. It also
	// covers forced demotion when a downstream fetch rejects the credential.
	LoggedOut struct{}
)

func (LoginStarted) isAuthEvent()   {}
func (LoginSucceeded) isAuthEvent() {}
func (LoginFailed) isAuthEvent()    {}
func (Restored) isAuthEvent()       {}
func (LoggedOut) isAuthEvent()      {}

// Reduce maps (state, event) to the next state. It never mutates its input.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case LoginStarted:
		return State{Phase: PhaseAuthenticating}
	case LoginSucceeded:
		return State{Phase: PhaseAuthenticated, Credential: ev.Credential}
	case LoginFailed:
		return State{Phase: PhaseError, Err: ev.Message}
	case Restored:
		// Optimistic: no re-validation; a downstream 401 demotes us.
		return State{Phase: PhaseAuthenticated, Credential: ev.Credential}
	case LoggedOut:
		return State{Phase: PhaseAnonymous}
	default:
		return s
	}
}
