package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ceceprawiro/sso/linkcache"
	"github.com/ceceprawiro/sso/session"
	"github.com/ceceprawiro/sso/sid"
)

// brokerContext is the result of resolving an inbound broker request:
// the authenticated broker and the resumed application session.
type brokerContext struct {
	brokerID string
	session  session.Session
}

// resolveBrokerSession is invoked at the top of every command handler.
// It revalidates the SID checksum against the broker's current secret,
// looks the SID up in the link cache, and resumes the linked session.
// Checksum verification happens on every call; nothing is trusted from
// a prior request.
func (a *API) resolveBrokerSession(r *http.Request) (brokerContext, error) {
	raw := r.URL.Query().Get("sid")
	if raw == "" {
		return brokerContext{}, fmt.Errorf("missing sid: %w", ErrInvalidRequest)
	}

	brokerID, err := sid.Validate(raw, a.brokers.LookupSecret)
	if err != nil {
		return brokerContext{}, err
	}

	ref, err := a.links.Get(r.Context(), raw)
	if errors.Is(err, linkcache.ErrNotFound) {
		return brokerContext{}, fmt.Errorf("broker %q: %w", brokerID, ErrNotAttached)
	}
	if err != nil {
		return brokerContext{}, fmt.Errorf("looking up session link: %w", err)
	}

	// Session fixation guard: if this request already carries an active
	// server session of its own, the link must point at that session,
	// not silently take over an unrelated one.
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" && c.Value != ref {
		if _, active := a.sessions.Get(c.Value); active {
			return brokerContext{}, fmt.Errorf("sid linked to %q but session %q is active: %w",
				ref, c.Value, ErrSessionConflict)
		}
	}

	s, ok := a.sessions.Get(ref)
	if !ok {
		// The link outlived the stored session record. Resume under the
		// same id: the reference stays stable, the login state is gone,
		// and the client simply sees 401 from getUser.
		s = session.Resume(ref, a.sessionTTL)
	}
	s.LastAccessedAt = time.Now()
	a.sessions.Put(s)

	return brokerContext{brokerID: brokerID, session: s}, nil
}

// resolveOrFail wraps resolveBrokerSession with audit logging and the
// error-to-status mapping.
func (a *API) resolveOrFail(w http.ResponseWriter, r *http.Request) (brokerContext, bool) {
	bc, err := a.resolveBrokerSession(r)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAttached):
			a.audit.logFailure(AuditNotAttached, r, err.Error())
		case errors.Is(err, ErrSessionConflict):
			a.audit.logFailure(AuditSessionConflict, r, err.Error())
		default:
			a.audit.logFailure(AuditSidRejected, r, err.Error(),
				slog.String("command", r.URL.Query().Get("command")))
		}
		mapError(w, err)
		return brokerContext{}, false
	}
	return bc, true
}
