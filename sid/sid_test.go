package sid_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceceprawiro/sso/sid"
)

var testSecret = []byte("broker1secret")

func lookupTestSecret(brokerID string) ([]byte, error) {
	if brokerID != "broker1" {
		return nil, errors.New("unknown broker")
	}
	return testSecret, nil
}

func TestGenerateTokenCharset(t *testing.T) {
	for i := 0; i < 100; i++ {
		token, err := sid.GenerateToken()
		require.NoError(t, err)
		assert.True(t, sid.ValidToken(token), "token %q outside allowed charset", token)
		assert.NotContains(t, token, sid.Separator)
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := sid.GenerateToken()
		require.NoError(t, err)
		require.False(t, seen[token], "token collision")
		seen[token] = true
	}
}

func TestChecksumDeterministic(t *testing.T) {
	first := sid.Checksum("sometoken", testSecret)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, sid.Checksum("sometoken", testSecret))
	}
	assert.True(t, sid.ValidChecksum(first))
	assert.NotEqual(t, first, sid.Checksum("othertoken", testSecret))
	assert.NotEqual(t, first, sid.Checksum("sometoken", []byte("othersecret")))
}

func TestChecksumMatchesReference(t *testing.T) {
	// The wire protocol fixes the checksum as sha256(token || secret) in
	// lowercase hex, so it must match any other implementation's output.
	assert.Equal(t,
		"d9db21448d73f8397d9401d925e90810faadaad67b0053599e61d9b9e3f7ad37",
		sid.Checksum("token", []byte("secret")))
	assert.Equal(t,
		"39f1283a683a8269a0f7d23c09db1dfbe5f90fc83fab8ed62dea0df6b9948a2d",
		sid.Checksum("mytoken", []byte("broker1secret")))
}

func TestVerifyChecksum(t *testing.T) {
	sum := sid.Checksum("tok3n", testSecret)
	assert.True(t, sid.VerifyChecksum("tok3n", testSecret, sum))
	assert.False(t, sid.VerifyChecksum("tok3n", testSecret, strings.Repeat("0", 64)))
	assert.False(t, sid.VerifyChecksum("other", testSecret, sum))
	assert.False(t, sid.VerifyChecksum("tok3n", []byte("wrong"), sum))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	token, err := sid.GenerateToken()
	require.NoError(t, err)
	sum := sid.Checksum(token, testSecret)

	encoded := sid.Encode("broker1", token, sum)
	decoded, err := sid.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "broker1", decoded.BrokerID)
	assert.Equal(t, token, decoded.Token)
	assert.Equal(t, sum, decoded.Checksum)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	validSum := strings.Repeat("ab", 32)
	cases := []string{
		"",
		"broker1",
		"broker1-token",
		"broker1-token-short",
		"broker1-token-" + validSum + "-extra",
		"broker_1-token-" + validSum,      // underscore not in the closed charset
		"broker1-TOKEN-" + validSum,       // token must be lowercase base36
		"broker1-token-" + strings.ToUpper(validSum),
		"-token-" + validSum,
		"broker1--" + validSum,
	}
	for _, c := range cases {
		_, err := sid.Decode(c)
		assert.ErrorIs(t, err, sid.ErrMalformedSid, "input %q", c)
	}
}

func TestValidateAcceptsGenuine(t *testing.T) {
	token, err := sid.GenerateToken()
	require.NoError(t, err)
	s := sid.Encode("broker1", token, sid.Checksum(token, testSecret))

	brokerID, err := sid.Validate(s, lookupTestSecret)
	require.NoError(t, err)
	assert.Equal(t, "broker1", brokerID)
}

func TestValidateRejectsForged(t *testing.T) {
	token, err := sid.GenerateToken()
	require.NoError(t, err)

	// Checksum computed against the wrong secret.
	forged := sid.Encode("broker1", token, sid.Checksum(token, []byte("guessedsecret")))
	_, err = sid.Validate(forged, lookupTestSecret)
	assert.ErrorIs(t, err, sid.ErrInvalidSid)

	// Token swapped after the checksum was minted.
	sum := sid.Checksum(token, testSecret)
	other, err := sid.GenerateToken()
	require.NoError(t, err)
	_, err = sid.Validate(sid.Encode("broker1", other, sum), lookupTestSecret)
	assert.ErrorIs(t, err, sid.ErrInvalidSid)
}

func TestValidateRejectsUnknownBroker(t *testing.T) {
	token, err := sid.GenerateToken()
	require.NoError(t, err)
	s := sid.Encode("broker9", token, sid.Checksum(token, testSecret))

	_, err = sid.Validate(s, lookupTestSecret)
	assert.ErrorIs(t, err, sid.ErrInvalidSid)
	assert.NotErrorIs(t, err, sid.ErrMalformedSid)
}

func TestMalformedAndInvalidAreDistinct(t *testing.T) {
	_, err := sid.Decode("not a sid")
	assert.ErrorIs(t, err, sid.ErrMalformedSid)
	assert.NotErrorIs(t, err, sid.ErrInvalidSid)
}
