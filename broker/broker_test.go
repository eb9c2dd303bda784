package broker_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceceprawiro/sso/broker"
	"github.com/ceceprawiro/sso/sid"
)

var broker1Secret = []byte("broker1secret")

func newBroker(t *testing.T, serverURL string) *broker.Broker {
	t.Helper()
	b, err := broker.New("broker1", append([]byte(nil), broker1Secret...), serverURL)
	require.NoError(t, err)
	return b
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := broker.New("broker-1", []byte("s"), "http://server.local/")
	assert.Error(t, err, "separator in broker id must be rejected")

	_, err = broker.New("broker1", nil, "http://server.local/")
	assert.Error(t, err)

	_, err = broker.New("broker1", []byte("s"), "not a url")
	assert.Error(t, err)
}

func TestAttachSetsCookieAndRedirects(t *testing.T) {
	b := newBroker(t, "http://server.local/")
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://broker1.local/app?page=1", nil)

	require.NoError(t, b.Attach(w, r, "http://broker1.local/app?page=1"))
	resp := w.Result()
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	// The token cookie must ride along with the redirect itself.
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "broker1", cookie.Name)
	assert.True(t, sid.ValidToken(cookie.Value))
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int(broker.DefaultTokenTTL.Seconds()), cookie.MaxAge)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "server.local", loc.Host)
	q := loc.Query()
	assert.Equal(t, "attach", q.Get("command"))
	assert.Equal(t, "broker1", q.Get("broker"))
	assert.Equal(t, cookie.Value, q.Get("token"))
	assert.Equal(t, sid.Checksum(cookie.Value, broker1Secret), q.Get("checksum"))
	assert.Equal(t, "http://broker1.local/app?page=1", q.Get("return"))
}

func TestEnsureAttached(t *testing.T) {
	b := newBroker(t, "http://server.local/")

	// No cookie: a redirect is written and the caller must stop.
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://broker1.local/app", nil)
	proceed, err := b.EnsureAttached(w, r)
	require.NoError(t, err)
	assert.False(t, proceed)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Result().StatusCode)

	loc, err := url.Parse(w.Result().Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "http://broker1.local/app", loc.Query().Get("return"))

	// Cookie present: no redirect.
	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "http://broker1.local/app", nil)
	r.AddCookie(&http.Cookie{Name: "broker1", Value: "sometoken123"})
	proceed, err = b.EnsureAttached(w, r)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestTokenIgnoresForeignAndMalformedCookies(t *testing.T) {
	b := newBroker(t, "http://server.local/")

	r := httptest.NewRequest("GET", "http://broker1.local/", nil)
	r.AddCookie(&http.Cookie{Name: "broker2", Value: "othertoken"})
	assert.Empty(t, b.Token(r))
	assert.False(t, b.Attached(r))

	r = httptest.NewRequest("GET", "http://broker1.local/", nil)
	r.AddCookie(&http.Cookie{Name: "broker1", Value: "NOT!valid"})
	assert.Empty(t, b.Token(r))
}

func TestSid(t *testing.T) {
	b := newBroker(t, "http://server.local/")
	s := b.Sid("mytoken")

	decoded, err := sid.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, "broker1", decoded.BrokerID)
	assert.Equal(t, "mytoken", decoded.Token)
	assert.Equal(t, sid.Checksum("mytoken", broker1Secret), decoded.Checksum)
}

// stubServer returns a server answering every command with a fixed
// status and body, recording the last request.
func stubServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		last = *r
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestGetUserStatusMapping(t *testing.T) {
	ctx := t.Context()

	srv, last := stubServer(t, http.StatusOK, `{"id":"1","username":"john"}`)
	b := newBroker(t, srv.URL)
	user, err := b.GetUser(ctx, "mytoken")
	require.NoError(t, err)
	assert.Equal(t, "john", user.Username)
	assert.Equal(t, "getUser", last.URL.Query().Get("command"))
	assert.Equal(t, b.Sid("mytoken"), last.URL.Query().Get("sid"))

	srv, _ = stubServer(t, http.StatusUnauthorized, `{"error":"not authenticated"}`)
	b = newBroker(t, srv.URL)
	_, err = b.GetUser(ctx, "mytoken")
	assert.ErrorIs(t, err, broker.ErrUnauthenticated)

	srv, _ = stubServer(t, http.StatusBadRequest, `{"error":"not attached"}`)
	b = newBroker(t, srv.URL)
	_, err = b.GetUser(ctx, "mytoken")
	var remote *broker.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusBadRequest, remote.StatusCode)
}

func TestLoginSendsFormBody(t *testing.T) {
	srv, last := stubServer(t, http.StatusOK, `{"id":"1","username":"john"}`)
	b := newBroker(t, srv.URL)

	user, err := b.Login(t.Context(), "mytoken", "john", "foo")
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)

	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "login", last.URL.Query().Get("command"))
	// Credentials travel in the body, never the query string.
	assert.Empty(t, last.URL.Query().Get("username"))
	assert.Equal(t, "john", last.PostForm.Get("username"))
	assert.Equal(t, "foo", last.PostForm.Get("password"))
}

func TestLoginStatusMapping(t *testing.T) {
	srv, _ := stubServer(t, http.StatusForbidden, `{"error":"invalid credentials"}`)
	b := newBroker(t, srv.URL)
	_, err := b.Login(t.Context(), "mytoken", "john", "wrong")
	assert.ErrorIs(t, err, broker.ErrInvalidCredentials)
}

func TestLogoutStatusMapping(t *testing.T) {
	srv, last := stubServer(t, http.StatusNoContent, "")
	b := newBroker(t, srv.URL)
	require.NoError(t, b.Logout(t.Context(), "mytoken"))
	assert.Equal(t, "logout", last.URL.Query().Get("command"))

	srv, _ = stubServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	b = newBroker(t, srv.URL)
	var remote *broker.RemoteError
	require.ErrorAs(t, b.Logout(t.Context(), "mytoken"), &remote)
	assert.Equal(t, http.StatusInternalServerError, remote.StatusCode)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens anymore
	b := newBroker(t, srv.URL)

	_, err := b.GetUser(t.Context(), "mytoken")
	assert.ErrorIs(t, err, broker.ErrTransport)
}
