package identity

import (
	"golang.org/x/crypto/bcrypt"
)

// UserEntry is a single username/password credential.
type UserEntry struct {
	// Username is the unique identifier of the principal.
	Username string
	// PasswordHash is the bcrypt hash of the password. Plaintext
	// passwords are never stored.
	PasswordHash string
	// Active indicates whether the principal may authenticate.
	Active bool
}

type passwordEntry struct {
	hash      []byte
	principal Principal
}

// PasswordStore is a read-only username/password credential store.
// Passwords are verified against stored bcrypt hashes; bcrypt's
// comparison is constant-time by construction.
type PasswordStore struct {
	users map[string]passwordEntry
}

// NewPasswordStore creates a password store from the given entries.
func NewPasswordStore(entries []UserEntry) *PasswordStore {
	users := make(map[string]passwordEntry, len(entries))
	for _, e := range entries {
		users[e.Username] = passwordEntry{
			hash: []byte(e.PasswordHash),
			principal: Principal{
				Username: e.Username,
				Active:   e.Active,
			},
		}
	}
	return &PasswordStore{users: users}
}

// Len returns the number of users in the store.
func (s *PasswordStore) Len() int {
	return len(s.users)
}

// Authenticate checks the username/password pair against the stored
// hash. Unknown usernames and wrong passwords both return
// ErrInvalidCredential; a wrong-password bcrypt comparison is run even
// for unknown usernames so the two failures cost the same.
func (s *PasswordStore) Authenticate(username, password string) (Principal, error) {
	entry, ok := s.users[username]
	if !ok {
		// Burn a comparison against a dummy hash so unknown users are
		// not distinguishable by response time.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Principal{}, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword(entry.hash, []byte(password)); err != nil {
		return Principal{}, ErrInvalidCredential
	}
	if !entry.principal.Active {
		return Principal{}, ErrInactivePrincipal
	}
	return entry.principal, nil
}

// ResolveSubject returns the principal for the given username.
// Used by token verification to re-resolve the asserted subject
// against current store state.
func (s *PasswordStore) ResolveSubject(username string) (Principal, error) {
	entry, ok := s.users[username]
	if !ok {
		return Principal{}, ErrInvalidCredential
	}
	if !entry.principal.Active {
		return Principal{}, ErrInactivePrincipal
	}
	return entry.principal, nil
}

// HashPassword produces a bcrypt hash suitable for UserEntry.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// dummyHash is a bcrypt hash of an unguessable value, used to equalize
// the cost of unknown-username failures.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("scangate-dummy-credential"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

var (
	_ PasswordAuthenticator = (*PasswordStore)(nil)
	_ SubjectResolver       = (*PasswordStore)(nil)
)
