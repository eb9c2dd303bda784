// Package linkcache stores the links between broker SIDs and server-side
// application sessions. It is the only state shared between the attach
// handshake and subsequent broker requests, so the backing store must be
// reachable from every server process handling a given browser.
package linkcache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no link exists for the SID. The
// caller must treat this as "client needs to re-attach", never as a
// recoverable condition.
var ErrNotFound = errors.New("session link not found")

// Cache maps a validated SID to an opaque application-session reference.
//
// Put overwrites any existing link for the same SID; re-attach is
// idempotent. Entries expire after ttl, which callers should bound to
// the token cookie lifetime.
type Cache interface {
	Put(ctx context.Context, sid, sessionRef string, ttl time.Duration) error
	Get(ctx context.Context, sid string) (string, error)
}
