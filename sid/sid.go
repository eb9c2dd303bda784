// Package sid implements the self-certifying broker session identifier
// exchanged between brokers and the SSO server.
//
// A SID is the composite string "brokerId-token-checksum". It carries
// everything the server needs to authenticate the broker that minted it:
// the checksum is a keyed hash of the token under the broker's shared
// secret, so the server revalidates a SID from the secret alone, with no
// record of issued tokens.
package sid

import (
	"errors"
	"fmt"
	"regexp"
)

// Separator joins the three SID fields. Broker ids and tokens are
// restricted to charsets that exclude it, so splitting is unambiguous.
const Separator = "-"

var (
	// ErrMalformedSid means the string does not match the SID grammar.
	ErrMalformedSid = errors.New("malformed sid")
	// ErrInvalidSid means the SID parsed but failed authentication:
	// the broker is unknown or the checksum does not verify.
	ErrInvalidSid = errors.New("invalid sid")
)

// The grammar is closed: alphanumeric broker id, base36 token, and a
// full SHA-256 hex checksum. Anything else is rejected outright.
var (
	sidPattern      = regexp.MustCompile(`^([A-Za-z0-9]+)-([0-9a-z]+)-([0-9a-f]{64})$`)
	brokerIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	tokenPattern    = regexp.MustCompile(`^[0-9a-z]+$`)
	checksumPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// ValidBrokerID reports whether id is usable inside a SID.
func ValidBrokerID(id string) bool { return brokerIDPattern.MatchString(id) }

// ValidToken reports whether token is usable inside a SID.
func ValidToken(token string) bool { return tokenPattern.MatchString(token) }

// ValidChecksum reports whether sum has the shape of a token checksum.
func ValidChecksum(sum string) bool { return checksumPattern.MatchString(sum) }

// Sid is a decoded broker session identifier.
type Sid struct {
	BrokerID string
	Token    string
	Checksum string
}

// SecretLookup resolves a broker id to its shared secret.
type SecretLookup func(brokerID string) ([]byte, error)

// Encode joins the three SID fields. Callers are responsible for the
// fields being drawn from the allowed charsets; Decode round-trips any
// Encode of valid fields.
func Encode(brokerID, token, checksum string) string {
	return brokerID + Separator + token + Separator + checksum
}

// Decode parses s against the strict SID grammar.
func Decode(s string) (Sid, error) {
	m := sidPattern.FindStringSubmatch(s)
	if m == nil {
		return Sid{}, fmt.Errorf("%q: %w", s, ErrMalformedSid)
	}
	return Sid{BrokerID: m[1], Token: m[2], Checksum: m[3]}, nil
}

// Validate decodes s, looks up the embedded broker's secret, and checks
// that the embedded checksum was derived from that secret. It returns
// the broker id on success. This is the sole gate in front of the
// session link cache, and it recomputes the checksum on every call.
func Validate(s string, lookup SecretLookup) (string, error) {
	decoded, err := Decode(s)
	if err != nil {
		return "", err
	}
	secret, err := lookup(decoded.BrokerID)
	if err != nil {
		return "", fmt.Errorf("broker %q: %w", decoded.BrokerID, ErrInvalidSid)
	}
	if !VerifyChecksum(decoded.Token, secret, decoded.Checksum) {
		return "", fmt.Errorf("checksum mismatch for broker %q: %w", decoded.BrokerID, ErrInvalidSid)
	}
	return decoded.BrokerID, nil
}
