package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store persists username to digest mappings.
//
// Lookup returns ok=false when the username is absent. Insert must return
// ErrDuplicateUser if the username already exists.
type Store interface {
	Lookup(ctx context.Context, username string) (digest string, ok bool, err error)
	Insert(ctx context.Context, username, digest string) error
}

// Directory is the account registry for one session.
type Directory struct {
	store  Store
	hasher Hasher
}

// NewDirectory returns a Directory over store. A nil hasher selects SHA256Hasher.
func NewDirectory(store Store, hasher Hasher) *Directory {
	if hasher == nil {
		hasher = SHA256Hasher{}
	}
	return &Directory{store: store, hasher: hasher}
}

// Register creates an account. The username is trimmed; the password is hashed as given.
func (d *Directory) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return ErrValidation
	}

	_, exists, err := d.store.Lookup(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, username)
	}

	if err := d.store.Insert(ctx, username, d.hasher.Hash(password)); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, username)
		}
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

// Verify checks credentials and returns the canonical username on success.
func (d *Directory) Verify(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	digest, ok, err := d.store.Lookup(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	if !d.hasher.Matches(password, digest) {
		return "", ErrInvalidCredentials
	}
	return username, nil
}
