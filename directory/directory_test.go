package directory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceceprawiro/sso/directory"
)

func TestRegistryLookup(t *testing.T) {
	reg := directory.NewRegistry()
	require.NoError(t, reg.Add("broker1", []byte("broker1secret")))

	secret, err := reg.LookupSecret("broker1")
	require.NoError(t, err)
	assert.Equal(t, []byte("broker1secret"), secret)
	assert.True(t, reg.Known("broker1"))

	_, err = reg.LookupSecret("broker9")
	assert.ErrorIs(t, err, directory.ErrUnknownBroker)
	assert.False(t, reg.Known("broker9"))
}

func TestRegistryRejectsBadIDs(t *testing.T) {
	reg := directory.NewRegistry()
	assert.Error(t, reg.Add("broker-1", []byte("s")), "separator in id must be rejected")
	assert.Error(t, reg.Add("", []byte("s")))
	assert.Error(t, reg.Add("broker1", nil))
}

func newTestUserDir(t *testing.T) *directory.UserDir {
	t.Helper()
	dir := directory.NewUserDir()
	require.NoError(t, dir.AddUser(directory.User{
		ID:       "1",
		Username: "john",
		Email:    "john@example.com",
		FullName: "John Doe",
	}, "foo"))
	require.NoError(t, dir.AddUser(directory.User{
		ID:       "2",
		Username: "jane",
		Email:    "jane@example.com",
		FullName: "Jane Roe",
	}, "foo"))
	return dir
}

func TestAuthenticate(t *testing.T) {
	dir := newTestUserDir(t)
	ctx := t.Context()

	u, err := dir.Authenticate(ctx, "john", "foo")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, "John Doe", u.FullName)

	_, err = dir.Authenticate(ctx, "john", "wrong")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials)

	_, err = dir.Authenticate(ctx, "nobody", "foo")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials)
}

func TestLookup(t *testing.T) {
	dir := newTestUserDir(t)
	ctx := t.Context()

	u, err := dir.Lookup(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "jane", u.Username)

	_, err = dir.Lookup(ctx, "99")
	assert.ErrorIs(t, err, directory.ErrUserNotFound)
}

func TestDuplicateProvisioning(t *testing.T) {
	dir := newTestUserDir(t)
	assert.Error(t, dir.AddUser(directory.User{ID: "1", Username: "other"}, "x"))
	assert.Error(t, dir.AddUser(directory.User{ID: "3", Username: "john"}, "x"))
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	dir := newTestUserDir(t)
	u, err := dir.Lookup(t.Context(), "1")
	require.NoError(t, err)
	require.NotEmpty(t, u.PasswordHash)

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), string(u.PasswordHash))
}
