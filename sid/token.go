package sid

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// tokenEntropy is the number of random bytes drawn for each token.
const tokenEntropy = 32

// GenerateToken returns a new high-entropy broker token. The token is
// base36-encoded ([0-9a-z]) so it can never contain the SID separator.
func GenerateToken() (string, error) {
	b := make([]byte, tokenEntropy)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token entropy: %w", err)
	}
	sum := sha256.Sum256(b)
	return new(big.Int).SetBytes(sum[:]).Text(36), nil
}

// Checksum derives the keyed checksum binding token to a broker's shared
// secret: the lowercase hex SHA-256 of token||secret. Both sides compute
// it independently; the secret itself never crosses the wire.
func Checksum(token string, secret []byte) string {
	h := sha256.New()
	h.Write([]byte(token))
	h.Write(secret)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyChecksum recomputes the checksum and compares it to candidate in
// constant time.
func VerifyChecksum(token string, secret []byte, candidate string) bool {
	return hmac.Equal([]byte(Checksum(token, secret)), []byte(candidate))
}
