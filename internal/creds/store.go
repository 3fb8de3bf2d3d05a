// Package creds persists the bearer credential between runs. Pure get/set/
// clear over one record, the local analog of the browser's localStorage.
package creds

import (
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("no credential stored")

// Credential is an opaque bearer credential plus the profile the backend
// returned alongside it.
type Credential struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
}

func (c *Credential) Empty() bool {
	return c == nil || c.AccessToken == ""
}

// Store is pure persistence. Clear removes the whole record in one go.
type Store interface {
	Load() (*Credential, error)
	Save(*Credential) error
	Clear() error
}

// Open picks the keyring store when the OS keychain is usable, otherwise a
// plain file next to the config.
func Open(filePath string, keyringDisabled bool) Store {
	if !keyringDisabled && KeyringAvailable() {
		return NewKeyringStore()
	}
	return NewFileStore(filePath)
}
