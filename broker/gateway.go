package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ceceprawiro/sso/directory"
)

// Outcomes of forwarded commands. ErrUnauthenticated is the normal state
// of an attached-but-not-logged-in browser, not an exceptional one; the
// caller typically answers it by sending the user to its own login page.
var (
	ErrUnauthenticated    = errors.New("no user logged in")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTransport means the server could not be reached at all. It is
	// never retried here: retrying a login could double-submit
	// credentials.
	ErrTransport = errors.New("could not contact sso server")
)

// RemoteError carries a server status the gateway has no local meaning
// for; callers pass it through verbatim.
type RemoteError struct {
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sso server returned status %d", e.StatusCode)
}

// GetUser asks the server who is logged in on this token's session.
func (b *Broker) GetUser(ctx context.Context, token string) (directory.User, error) {
	resp, err := b.call(ctx, http.MethodGet, "getUser", token, nil)
	if err != nil {
		return directory.User{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeUser(resp.Body)
	case http.StatusUnauthorized:
		return directory.User{}, ErrUnauthenticated
	default:
		return directory.User{}, &RemoteError{StatusCode: resp.StatusCode}
	}
}

// Login forwards credentials to the server. The credentials travel in
// the form body; the SID stays in the query string.
func (b *Broker) Login(ctx context.Context, token, username, password string) (directory.User, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := b.call(ctx, http.MethodPost, "login", token, form)
	if err != nil {
		return directory.User{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeUser(resp.Body)
	case http.StatusForbidden:
		return directory.User{}, ErrInvalidCredentials
	default:
		return directory.User{}, &RemoteError{StatusCode: resp.StatusCode}
	}
}

// Logout clears the logged-in user on this token's session.
func (b *Broker) Logout(ctx context.Context, token string) error {
	resp, err := b.call(ctx, http.MethodGet, "logout", token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return &RemoteError{StatusCode: resp.StatusCode}
	}
	return nil
}

// call issues one synchronous request to the server. Every call carries
// the full SID; the checksum inside it is recomputed from the current
// secret, never cached.
func (b *Broker) call(ctx context.Context, method, command, token string, form url.Values) (*http.Response, error) {
	u, err := url.Parse(b.serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	q := u.Query()
	q.Set("command", command)
	q.Set("sid", b.Sid(token))
	u.RawQuery = q.Encode()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", command, err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return resp, nil
}

func decodeUser(r io.Reader) (directory.User, error) {
	var u directory.User
	if err := json.NewDecoder(r).Decode(&u); err != nil {
		return directory.User{}, fmt.Errorf("decoding user response: %w", err)
	}
	return u, nil
}
