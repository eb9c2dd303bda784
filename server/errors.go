package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ceceprawiro/sso/directory"
	"github.com/ceceprawiro/sso/linkcache"
	"github.com/ceceprawiro/sso/sid"
)

// Protocol failure modes. Malformed and forged SIDs stay distinguishable
// internally (sid.ErrMalformedSid vs sid.ErrInvalidSid) even though both
// map to the same external status.
var (
	// ErrInvalidRequest means a required field is missing.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidBroker means the broker id is not provisioned.
	ErrInvalidBroker = errors.New("invalid broker")
	// ErrInvalidChecksum means the attach checksum was not derived from
	// the broker's secret.
	ErrInvalidChecksum = errors.New("invalid checksum")
	// ErrNotAttached means the SID verified but has no link; the client
	// must redo the attach handshake.
	ErrNotAttached = errors.New("not attached")
	// ErrSessionConflict means the SID resolves to a different session
	// than the one already active on this request.
	ErrSessionConflict = errors.New("session already started")
	// ErrUnauthenticated means no user is logged in on the session.
	ErrUnauthenticated = errors.New("not authenticated")
)

// ErrorResponse is the JSON body sent on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// mapError is the single boundary translating protocol errors to HTTP
// statuses. Nothing below this terminates the request on its own.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, ErrInvalidBroker):
		writeError(w, http.StatusBadRequest, "invalid broker")
	case errors.Is(err, ErrInvalidChecksum):
		writeError(w, http.StatusBadRequest, "invalid checksum")
	case errors.Is(err, sid.ErrMalformedSid), errors.Is(err, sid.ErrInvalidSid):
		writeError(w, http.StatusBadRequest, "invalid sid")
	case errors.Is(err, ErrNotAttached):
		writeError(w, http.StatusBadRequest, "not attached")
	case errors.Is(err, ErrSessionConflict):
		writeError(w, http.StatusBadRequest, "session already started")
	case errors.Is(err, ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, directory.ErrInvalidCredentials):
		writeError(w, http.StatusForbidden, "invalid credentials")
	case errors.Is(err, linkcache.ErrNotFound):
		writeError(w, http.StatusBadRequest, "not attached")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
