// Package session holds the server's own record of which user, if any,
// a browser is logged in as. Brokers never see these sessions directly;
// they reach them only through the link cache reference recorded at
// attach time.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is an application session. A session exists from the first
// attach onward; UserID stays empty until a successful login and is
// cleared again on logout.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Authenticated reports whether a user is logged in on this session.
func (s Session) Authenticated() bool { return s.UserID != "" }

// New creates an anonymous session with a fresh identifier.
func New(ttl time.Duration) Session {
	now := time.Now()
	return Session{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastAccessedAt: now,
	}
}

// Resume recreates an anonymous session under a previously issued id.
// Used when a link cache entry outlives the stored session record: the
// reference is still honored, but the login state is gone.
func Resume(id string, ttl time.Duration) Session {
	s := New(ttl)
	s.ID = id
	return s
}

// Store abstracts session CRUD so that sessions can be kept in memory
// (default) or in persistent backing storage.
type Store interface {
	// Get retrieves a session by id. Returns false if the session does
	// not exist, has expired, or has exceeded the idle timeout.
	Get(id string) (Session, bool)
	// Put creates or updates a session.
	Put(s Session)
	// Delete removes a session by id.
	Delete(id string)
}
