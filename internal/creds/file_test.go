package creds

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(path)

	cred := &Credential{
		AccessToken:  "abc",
		RefreshToken: "refresh-1",
		User:         json.RawMessage(`{"id":"u1","email":"test@example.com"}`),
	}
	require.NoError(t, store.Save(cred))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "abc", got.AccessToken)
	require.Equal(t, "refresh-1", got.RefreshToken)
	require.JSONEq(t, `{"id":"u1","email":"test@example.com"}`, string(got.User))
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(&Credential{AccessToken: "abc"}))
	require.NoError(t, store.Clear())

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNotFound)

	// clearing twice must not fail
	require.NoError(t, store.Clear())
}

func TestFileStoreEmptyCredentialIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":""}`), 0o600))

	_, err := NewFileStore(path).Load()
	require.ErrorIs(t, err, ErrNotFound)
}
