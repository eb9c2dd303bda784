package directory

import (
	"bytes"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/ceceprawiro/sso/sid"
)

// Registry is a static broker registry. Each shared secret lives in a
// memguard enclave (encrypted at rest in memory) and is only decrypted
// for the duration of a lookup.
type Registry struct {
	brokers map[string]*memguard.Enclave
}

var _ SecretStore = (*Registry)(nil)

// NewRegistry creates an empty broker registry.
func NewRegistry() *Registry {
	return &Registry{brokers: make(map[string]*memguard.Enclave)}
}

// Add provisions a broker. The id must fit the SID grammar, since it is
// embedded verbatim in every SID the broker mints. The secret slice is
// wiped as a side effect of sealing it.
func (r *Registry) Add(id string, secret []byte) error {
	if !sid.ValidBrokerID(id) {
		return fmt.Errorf("broker id %q contains characters outside [A-Za-z0-9]", id)
	}
	if len(secret) == 0 {
		return fmt.Errorf("broker %q: secret must not be empty", id)
	}
	r.brokers[id] = memguard.NewEnclave(secret)
	return nil
}

// LookupSecret implements SecretStore. The returned slice is a copy;
// callers should zero it when done.
func (r *Registry) LookupSecret(brokerID string) ([]byte, error) {
	enclave, ok := r.brokers[brokerID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", brokerID, ErrUnknownBroker)
	}
	buf, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("opening secret for broker %q: %w", brokerID, err)
	}
	defer buf.Destroy()
	return bytes.Clone(buf.Bytes()), nil
}

// Known reports whether a broker id is provisioned.
func (r *Registry) Known(brokerID string) bool {
	_, ok := r.brokers[brokerID]
	return ok
}
