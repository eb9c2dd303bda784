package directory

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

// UserDir is a static in-memory user directory. Passwords are stored as
// bcrypt hashes; usernames and passwords are NFKD-normalized before
// hashing and lookup so that visually identical Unicode input matches.
type UserDir struct {
	mu         sync.RWMutex
	byID       map[string]User
	byUsername map[string]string
}

var _ AuthBackend = (*UserDir)(nil)

// NewUserDir creates an empty user directory.
func NewUserDir() *UserDir {
	return &UserDir{
		byID:       make(map[string]User),
		byUsername: make(map[string]string),
	}
}

// AddUser provisions a user with the given plaintext password. The
// password is bcrypt-hashed before storage.
func (d *UserDir) AddUser(u User, password string) error {
	if u.ID == "" || u.Username == "" {
		return fmt.Errorf("user id and username are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(norm.NFKD.String(password)), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password for %q: %w", u.Username, err)
	}
	u.PasswordHash = hash

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byID[u.ID]; exists {
		return fmt.Errorf("user id %q already provisioned", u.ID)
	}
	username := norm.NFKD.String(u.Username)
	if _, exists := d.byUsername[username]; exists {
		return fmt.Errorf("username %q already provisioned", u.Username)
	}
	d.byID[u.ID] = u
	d.byUsername[username] = u.ID
	return nil
}

// Authenticate implements AuthBackend.
func (d *UserDir) Authenticate(_ context.Context, username, password string) (User, error) {
	d.mu.RLock()
	id, ok := d.byUsername[norm.NFKD.String(username)]
	var u User
	if ok {
		u = d.byID[id]
	}
	d.mu.RUnlock()
	if !ok {
		// Burn a comparison anyway so unknown usernames cost the same
		// as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(norm.NFKD.String(password))); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup implements AuthBackend.
func (d *UserDir) Lookup(_ context.Context, userID string) (User, error) {
	d.mu.RLock()
	u, ok := d.byID[userID]
	d.mu.RUnlock()
	if !ok {
		return User{}, fmt.Errorf("%q: %w", userID, ErrUserNotFound)
	}
	return u, nil
}

var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()
