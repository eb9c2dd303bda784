package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/awnumar/memguard"

	"github.com/ceceprawiro/sso/session"
	"github.com/ceceprawiro/sso/sid"
)

// Attach handles the server side of the attach handshake: it validates
// the broker and checksum, links the resulting SID to this browser's
// application session, and bounces the browser back to the broker.
//
// Attach happens before login; the session being linked is usually
// still anonymous. Re-attaching with the same SID just refreshes the
// link.
func (a *API) Attach(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	brokerID := q.Get("broker")
	token := q.Get("token")
	checksum := q.Get("checksum")
	returnURL := q.Get("return")

	if brokerID == "" || token == "" || checksum == "" || returnURL == "" {
		a.audit.logFailure(AuditAttachRejected, r, "missing required field")
		mapError(w, ErrInvalidRequest)
		return
	}
	// The closed charsets are what make the SID grammar unambiguous;
	// reject anything outside them before it can be encoded into one.
	if !sid.ValidBrokerID(brokerID) || !sid.ValidToken(token) || !sid.ValidChecksum(checksum) {
		a.audit.logFailure(AuditAttachRejected, r, "field outside allowed charset",
			slog.String("broker", brokerID))
		mapError(w, ErrInvalidRequest)
		return
	}

	secret, err := a.brokers.LookupSecret(brokerID)
	if err != nil {
		a.audit.logFailure(AuditAttachRejected, r, "unknown broker",
			slog.String("broker", brokerID))
		mapError(w, fmt.Errorf("%q: %w", brokerID, ErrInvalidBroker))
		return
	}
	defer memguard.WipeBytes(secret)

	if !sid.VerifyChecksum(token, secret, checksum) {
		a.audit.logFailure(AuditAttachRejected, r, "checksum mismatch",
			slog.String("broker", brokerID))
		mapError(w, fmt.Errorf("broker %q: %w", brokerID, ErrInvalidChecksum))
		return
	}

	s := a.currentSession(w, r)
	id := sid.Encode(brokerID, token, checksum)
	if err := a.links.Put(r.Context(), id, s.ID, a.tokenTTL); err != nil {
		mapError(w, fmt.Errorf("linking session: %w", err))
		return
	}

	a.audit.logEvent(AuditAttachSuccess, r, brokerID, slog.String("session_id", s.ID))
	http.Redirect(w, r, returnURL, http.StatusTemporaryRedirect)
}

// currentSession returns the application session identified by this
// request's session cookie, creating one (and setting the cookie) when
// absent or expired.
func (a *API) currentSession(w http.ResponseWriter, r *http.Request) session.Session {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		if s, ok := a.sessions.Get(c.Value); ok {
			s.LastAccessedAt = time.Now()
			a.sessions.Put(s)
			return s
		}
	}
	s := session.New(a.sessionTTL)
	a.sessions.Put(s)
	writeSessionCookie(w, r, s.ID, s.ExpiresAt)
	return s
}

func writeSessionCookie(w http.ResponseWriter, r *http.Request, id string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
