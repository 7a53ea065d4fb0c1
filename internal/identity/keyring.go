package identity

import (
	"crypto/sha256"
	"crypto/subtle"
)

// KeyEntry is a single static API key mapping.
type KeyEntry struct {
	// Key is the raw API key value.
	Key string
	// Username is the principal that owns the key.
	Username string
	// Active indicates whether the owning principal may authenticate.
	Active bool
}

type keyringEntry struct {
	hash      [32]byte
	principal Principal
}

// Keyring is a read-only static API key store.
// Keys are pre-hashed at construction and compared in constant time.
//
// Security note: SHA-256 is appropriate for API key hashing because
// API keys are high-entropy secrets, not passwords. Constant-time
// comparison prevents timing attacks (see ResolveKey).
type Keyring struct {
	entries []keyringEntry
}

// NewKeyring creates a keyring from the given entries.
// Each raw key is hashed at creation time for secure comparison.
func NewKeyring(entries []KeyEntry) *Keyring {
	ring := &Keyring{
		entries: make([]keyringEntry, 0, len(entries)),
	}
	for _, e := range entries {
		ring.entries = append(ring.entries, keyringEntry{
			// #nosec G401 -- SHA-256 is appropriate for high-entropy API keys (not passwords)
			hash: sha256.Sum256([]byte(e.Key)),
			principal: Principal{
				Username: e.Username,
				Active:   e.Active,
			},
		})
	}
	return ring
}

// Len returns the number of keys in the ring.
func (k *Keyring) Len() int {
	return len(k.entries)
}

// ResolveKey returns the principal owning the given key.
// Every entry is compared with subtle.ConstantTimeCompare and the scan
// never exits early, so resolution time does not depend on which entry
// (if any) matched.
func (k *Keyring) ResolveKey(key string) (Principal, error) {
	// #nosec G401 -- SHA-256 is appropriate for high-entropy API keys (not passwords)
	providedHash := sha256.Sum256([]byte(key))

	var (
		matched Principal
		found   bool
	)
	for i := range k.entries {
		if subtle.ConstantTimeCompare(providedHash[:], k.entries[i].hash[:]) == 1 {
			matched = k.entries[i].principal
			found = true
		}
	}

	if !found {
		return Principal{}, ErrInvalidCredential
	}
	if !matched.Active {
		return Principal{}, ErrInactivePrincipal
	}
	return matched, nil
}

var _ KeyResolver = (*Keyring)(nil)
