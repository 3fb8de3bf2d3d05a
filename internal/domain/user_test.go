package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("alice@example.com")
	require.NoError(t, err)
	require.Equal(t, Identity("alice@example.com"), id)

	_, err = NewIdentity("")
	require.ErrorIs(t, err, ErrIdentityEmpty)

	_, err = NewIdentity(strings.Repeat("a", MaxIdentityLen+1))
	require.ErrorIs(t, err, ErrIdentityTooLong)

	id, err = NewIdentity(strings.Repeat("a", MaxIdentityLen))
	require.NoError(t, err)
	require.Len(t, string(id), MaxIdentityLen)
}
