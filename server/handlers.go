package server

import (
	"log/slog"
	"net/http"
)

// GetUser handles command=getUser: it returns the logged-in user record
// for the resumed session, with credential fields stripped.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	bc, ok := a.resolveOrFail(w, r)
	if !ok {
		return
	}
	if !bc.session.Authenticated() {
		mapError(w, ErrUnauthenticated)
		return
	}
	user, err := a.users.Lookup(r.Context(), bc.session.UserID)
	if err != nil {
		// The session points at a user the directory no longer knows.
		mapError(w, ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Login handles command=login: it authenticates the form credentials
// against the directory and, on success, marks the session as logged in.
// The session is left untouched on failure.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	bc, ok := a.resolveOrFail(w, r)
	if !ok {
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		mapError(w, ErrInvalidRequest)
		return
	}

	limiterKey := bc.brokerID + "|" + clientIP(r)
	if blocked, retryAfter := a.limiter.check(limiterKey); blocked {
		a.audit.logFailure(AuditLoginRateLimited, r, "rate limited",
			slog.String("broker", bc.brokerID))
		writeRateLimited(w, retryAfter)
		return
	}

	user, err := a.users.Authenticate(r.Context(), username, password)
	if err != nil {
		a.limiter.recordFailure(limiterKey)
		a.audit.logFailure(AuditLoginFailure, r, "invalid credentials",
			slog.String("broker", bc.brokerID))
		mapError(w, err)
		return
	}
	a.limiter.recordSuccess(limiterKey)

	bc.session.UserID = user.ID
	a.sessions.Put(bc.session)

	a.audit.logEvent(AuditLoginSuccess, r, bc.brokerID,
		slog.String("user_id", user.ID))
	writeJSON(w, http.StatusOK, user)
}

// Logout handles command=logout: it clears the authenticated-user marker
// from the session. The session itself, and its broker links, survive.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	bc, ok := a.resolveOrFail(w, r)
	if !ok {
		return
	}
	userID := bc.session.UserID
	bc.session.UserID = ""
	a.sessions.Put(bc.session)

	a.audit.logEvent(AuditLogout, r, bc.brokerID, slog.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}
