package identity_test

import (
	"errors"
	"testing"

	"github.com/dmid-labs/scangate/internal/identity"
)

func testKeyring() *identity.Keyring {
	return identity.NewKeyring([]identity.KeyEntry{
		{Key: "secret-key-123", Username: "user1", Active: true},
		{Key: "secret-key-456", Username: "user2", Active: true},
		{Key: "secret-key-789", Username: "ghost", Active: false},
	})
}

// TestKeyring_ResolveKey tests static API key resolution.
func TestKeyring_ResolveKey(t *testing.T) {
	t.Parallel()

	ring := testKeyring()

	tests := []struct {
		name         string
		key          string
		wantUsername string
		wantErr      error
	}{
		{
			name:         "first key resolves to its owner",
			key:          "secret-key-123",
			wantUsername: "user1",
		},
		{
			name:         "second key resolves to its owner",
			key:          "secret-key-456",
			wantUsername: "user2",
		},
		{
			name:    "unknown key",
			key:     "wrong-key",
			wantErr: identity.ErrInvalidCredential,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: identity.ErrInvalidCredential,
		},
		{
			name:    "prefix of a valid key does not match",
			key:     "secret-key",
			wantErr: identity.ErrInvalidCredential,
		},
		{
			name:    "inactive principal is rejected with a valid key",
			key:     "secret-key-789",
			wantErr: identity.ErrInactivePrincipal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			principal, err := ring.ResolveKey(tt.key)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveKey() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ResolveKey() unexpected error: %v", err)
			}
			if principal.Username != tt.wantUsername {
				t.Errorf("Username = %q, want %q", principal.Username, tt.wantUsername)
			}
			if !principal.Active {
				t.Error("resolved principal should be active")
			}
		})
	}
}

// TestKeyring_Len verifies entry counting.
func TestKeyring_Len(t *testing.T) {
	t.Parallel()

	if got := testKeyring().Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}

	if got := identity.NewKeyring(nil).Len(); got != 0 {
		t.Errorf("empty Len() = %d, want 0", got)
	}
}
