package creds

import (
	"encoding/json"
	"errors"
	"fmt"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName = "voiceclient"
	accountName = "session"
)

// KeyringStore keeps the credential in the OS keychain.
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Load() (*Credential, error) {
	raw, err := zkr.Get(serviceName, accountName)
	if errors.Is(err, zkr.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	var c Credential
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("parse keychain credential: %w", err)
	}
	if c.Empty() {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *KeyringStore) Save(c *Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := zkr.Set(serviceName, accountName, string(data)); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

func (s *KeyringStore) Clear() error {
	err := zkr.Delete(serviceName, accountName)
	if err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// KeyringAvailable probes the keychain with a write/delete cycle.
func KeyringAvailable() bool {
	const probeService = "voiceclient-keyring-probe"
	if err := zkr.Set(probeService, "probe", "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(probeService, "probe")
	return true
}
