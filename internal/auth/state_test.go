package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/VoiceClient/internal/creds"
)

func TestReduce(t *testing.T) {
	cred := &creds.Credential{AccessToken: "abc"}

	tests := []struct {
		name  string
		state State
		event Event
		want  State
	}{
		{
			name:  "login started from anonymous",
			state: State{Phase: PhaseAnonymous},
			event: LoginStarted{},
			want:  State{Phase: PhaseAuthenticating},
		},
		{
			name:  "login succeeded carries credential",
			state: State{Phase: PhaseAuthenticating},
			event: LoginSucceeded{Credential: cred},
			want:  State{Phase: PhaseAuthenticated, Credential: cred},
		},
		{
			name:  "login failed carries message",
			state: State{Phase: PhaseAuthenticating},
			event: LoginFailed{Message: "invalid credentials"},
			want:  State{Phase: PhaseError, Err: "invalid credentials"},
		},
		{
			name:  "restore is optimistic",
			state: State{Phase: PhaseAnonymous},
			event: Restored{Credential: cred},
			want:  State{Phase: PhaseAuthenticated, Credential: cred},
		},
		{
			name:  "logout drops credential",
			state: State{Phase: PhaseAuthenticated, Credential: cred},
			event: LoggedOut{},
			want:  State{Phase: PhaseAnonymous},
		},
		{
			name:  "logout from error clears message",
			state: State{Phase: PhaseError, Err: "boom"},
			event: LoggedOut{},
			want:  State{Phase: PhaseAnonymous},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Reduce(tt.state, tt.event))
		})
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	in := State{Phase: PhaseAuthenticated, Credential: &creds.Credential{AccessToken: "abc"}}
	_ = Reduce(in, LoggedOut{})
	require.Equal(t, PhaseAuthenticated, in.Phase)
	require.NotNil(t, in.Credential)
}
