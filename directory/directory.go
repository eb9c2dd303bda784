// Package directory defines the external collaborators of the SSO
// protocol: the broker registry that resolves broker ids to shared
// secrets, and the user directory that authenticates credentials. The
// static implementations here stand in for a real directory service.
package directory

import (
	"context"
	"errors"
)

var (
	// ErrUnknownBroker means the broker id is not provisioned.
	ErrUnknownBroker = errors.New("unknown broker")
	// ErrInvalidCredentials means the username/password pair did not
	// authenticate.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound means no user record exists for the id.
	ErrUserNotFound = errors.New("user not found")
)

// User is a record in the user directory. The password hash is never
// serialized; responses carry the record with credential fields
// stripped automatically.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`

	PasswordHash []byte `json:"-"`
}

// SecretStore resolves a broker id to its shared secret. Secrets are
// provisioned out-of-band and are read-only at runtime.
type SecretStore interface {
	// LookupSecret returns a copy of the broker's shared secret, or
	// ErrUnknownBroker. Callers should zero the copy when done.
	LookupSecret(brokerID string) ([]byte, error)
}

// AuthBackend authenticates credentials and loads user records.
type AuthBackend interface {
	// Authenticate verifies a username/password pair and returns the
	// matching user, or ErrInvalidCredentials.
	Authenticate(ctx context.Context, username, password string) (User, error)
	// Lookup loads a user record by id, or ErrUserNotFound.
	Lookup(ctx context.Context, userID string) (User, error)
}
