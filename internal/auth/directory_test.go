package auth

import (
	"context"
	"errors"
	"testing"
)

func newTestDirectory() (*Directory, *MemoryStore) {
	store := NewMemoryStore()
	return NewDirectory(store, nil), store
}

func TestDirectory_RegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory()

	if err := dir.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if err := dir.Register(ctx, "alice", "pw2"); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("second register: got %v, want ErrDuplicateUser", err)
	}
	if _, err := dir.Verify(ctx, "alice", "pw2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("verify wrong password: got %v, want ErrInvalidCredentials", err)
	}
	user, err := dir.Verify(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user != "alice" {
		t.Errorf("verified user = %q, want alice", user)
	}
}

func TestDirectory_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	dir, store := newTestDirectory()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "pw"},
		{"blank username", "   ", "pw"},
		{"empty password", "bob", ""},
		{"blank password", "bob", " \t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := dir.Register(ctx, tt.username, tt.password); !errors.Is(err, ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
		})
	}
	if len(store.accounts) != 0 {
		t.Errorf("failed registrations stored %d accounts", len(store.accounts))
	}
}

func TestDirectory_VerifyUnknownUser(t *testing.T) {
	dir, _ := newTestDirectory()
	if _, err := dir.Verify(context.Background(), "ghost", "pw"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("got %v, want ErrUnknownUser", err)
	}
}

func TestDirectory_TrimsUsername(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory()
	if err := dir.Register(ctx, "  carol ", "secret"); err != nil {
		t.Fatal(err)
	}
	user, err := dir.Verify(ctx, "carol", "secret")
	if err != nil || user != "carol" {
		t.Fatalf("Verify = %q, %v", user, err)
	}
	// Passwords are not trimmed.
	if _, err := dir.Verify(ctx, "carol", " secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestDirectory_StoresDigestNotPassword(t *testing.T) {
	ctx := context.Background()
	dir, store := newTestDirectory()
	if err := dir.Register(ctx, "dave", "hunter2"); err != nil {
		t.Fatal(err)
	}
	digest := store.accounts["dave"]
	if digest == "hunter2" {
		t.Fatal("plaintext password stored")
	}
	if digest != (SHA256Hasher{}).Hash("hunter2") {
		t.Errorf("stored digest %q does not match SHA256Hasher", digest)
	}
}

type failingStore struct{ err error }

func (f failingStore) Lookup(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStore) Insert(context.Context, string, string) error         { return f.err }

func TestDirectory_StoreErrorsAreNotTaxonomy(t *testing.T) {
	boom := errors.New("disk on fire")
	dir := NewDirectory(failingStore{err: boom}, nil)

	err := dir.Register(context.Background(), "erin", "pw")
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped store error", err)
	}
	for _, sentinel := range []error{ErrValidation, ErrDuplicateUser, ErrUnknownUser, ErrInvalidCredentials} {
		if errors.Is(err, sentinel) {
			t.Errorf("store failure classified as %v", sentinel)
		}
	}
}
