// Package broker implements the client-side half of the SSO protocol:
// minting the per-browser token, the attach redirect to the server, and
// the gateway that forwards commands under the resulting SID.
package broker

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ceceprawiro/sso/sid"
)

// DefaultTokenTTL matches the server's link cache TTL so the cookie and
// its link expire together.
const DefaultTokenTTL = time.Hour

// Broker holds one application's identity with the SSO server.
type Broker struct {
	id        string
	secret    []byte
	serverURL string
	tokenTTL  time.Duration
	client    *http.Client
}

// Option configures a Broker.
type Option func(*Broker)

// WithHTTPClient sets the client used for server commands. Timeouts are
// the client's concern; the protocol itself never retries.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Broker) { b.client = c }
}

// WithTokenTTL overrides the token cookie lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Broker) { b.tokenTTL = ttl }
}

// New creates a Broker. The id must fit the SID grammar since it is
// embedded verbatim in every SID this broker mints.
func New(id string, secret []byte, serverURL string, opts ...Option) (*Broker, error) {
	if !sid.ValidBrokerID(id) {
		return nil, fmt.Errorf("broker id %q contains characters outside [A-Za-z0-9]", id)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("broker %q: secret must not be empty", id)
	}
	if _, err := url.ParseRequestURI(serverURL); err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	b := &Broker{
		id:        id,
		secret:    secret,
		serverURL: serverURL,
		tokenTTL:  DefaultTokenTTL,
		client:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ID returns the broker id.
func (b *Broker) ID() string { return b.id }

// CookieName is the name of the token cookie: the broker id itself, so
// one browser can hold independent tokens for several brokers.
func (b *Broker) CookieName() string { return b.id }

// Token returns the token from the request's cookie, or "" when the
// browser is not yet attached.
func (b *Broker) Token(r *http.Request) string {
	c, err := r.Cookie(b.CookieName())
	if err != nil || !sid.ValidToken(c.Value) {
		return ""
	}
	return c.Value
}

// Attached reports whether the request carries a usable token cookie.
// Attachment is inferred entirely from cookie presence; the server may
// still answer NotAttached if its link entry is gone, in which case the
// caller re-attaches.
func (b *Broker) Attached(r *http.Request) bool {
	return b.Token(r) != ""
}

// Sid returns the composite session id for a token.
func (b *Broker) Sid(token string) string {
	return sid.Encode(b.id, token, sid.Checksum(token, b.secret))
}

// Attach mints a fresh token, stores it in the cookie, and redirects
// the browser to the server's attach endpoint. The cookie is written in
// the same response as the redirect so the browser persists it before
// following. After the server records the link it bounces the browser
// back to returnURL.
func (b *Broker) Attach(w http.ResponseWriter, r *http.Request, returnURL string) error {
	token, err := sid.GenerateToken()
	if err != nil {
		return fmt.Errorf("minting broker token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     b.CookieName(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(b.tokenTTL.Seconds()),
	})

	u, err := url.Parse(b.serverURL)
	if err != nil {
		return fmt.Errorf("parsing server url: %w", err)
	}
	q := u.Query()
	q.Set("command", "attach")
	q.Set("broker", b.id)
	q.Set("token", token)
	q.Set("checksum", sid.Checksum(token, b.secret))
	q.Set("return", returnURL)
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusTemporaryRedirect)
	return nil
}

// EnsureAttached attaches the browser if it has no token yet, using the
// request's own URL as the return target. It reports whether the caller
// may proceed; false means a redirect was already written.
func (b *Broker) EnsureAttached(w http.ResponseWriter, r *http.Request) (bool, error) {
	if b.Attached(r) {
		return true, nil
	}
	if err := b.Attach(w, r, requestURL(r)); err != nil {
		return false, err
	}
	return false, nil
}

// requestURL reconstructs the absolute URL of an inbound request.
func requestURL(r *http.Request) string {
	scheme := "http"
	if requestIsSecure(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
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
