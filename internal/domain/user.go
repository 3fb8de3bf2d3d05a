// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxIdentityLen = 64

var (
	ErrIdentityTooLong = errors.New("identity too long")
	ErrIdentityEmpty   = errors.New("identity empty")
)

type UserID string

// User is the authenticated account behind this client.
type User struct {
	ID    UserID `json:"id"`
	Email string `json:"email"`
}

// Identity is the name a participant carries inside a room. The backend puts
// the user's email into the media token, so it usually looks like an email.
type Identity string

func NewIdentity(s string) (Identity, error) {
	if len(s) == 0 {
		return "", ErrIdentityEmpty
	}
	if len(s) > MaxIdentityLen {
		return "", ErrIdentityTooLong
	}
	return Identity(s), nil
}
