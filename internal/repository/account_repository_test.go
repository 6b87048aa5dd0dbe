package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"taskstack/internal/auth"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestNewDB_RejectsFileDSN(t *testing.T) {
	if _, err := NewDB("data/accounts.db"); err == nil {
		t.Fatal("expected on-disk DSN to be rejected")
	}
}

func TestIsMemoryDSN(t *testing.T) {
	tests := map[string]bool{
		":memory:":                        true,
		"file::memory:?cache=shared":      true,
		"file:x?mode=memory&cache=shared": true,
		"daily.db":                        false,
		"file:daily.db":                   false,
	}
	for dsn, want := range tests {
		if got := IsMemoryDSN(dsn); got != want {
			t.Errorf("IsMemoryDSN(%q) = %t, want %t", dsn, got, want)
		}
	}
}

func TestAccountRepository_InsertLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(openTestDB(t), "s1")

	if _, ok, err := repo.Lookup(ctx, "alice"); err != nil || ok {
		t.Fatalf("Lookup before insert = ok %t, err %v", ok, err)
	}
	if err := repo.Insert(ctx, "alice", "digest"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	digest, ok, err := repo.Lookup(ctx, "alice")
	if err != nil || !ok || digest != "digest" {
		t.Fatalf("Lookup = %q, %t, %v", digest, ok, err)
	}
	if err := repo.Insert(ctx, "alice", "other"); !errors.Is(err, auth.ErrDuplicateUser) {
		t.Fatalf("duplicate Insert: got %v, want ErrDuplicateUser", err)
	}
}

func TestAccountRepository_ScopedBySession(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	one := NewAccountRepository(db, "s1")
	two := NewAccountRepository(db, "s2")

	if err := one.Insert(ctx, "alice", "d1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := two.Lookup(ctx, "alice"); ok {
		t.Fatal("account leaked across sessions")
	}
	if err := two.Insert(ctx, "alice", "d2"); err != nil {
		t.Fatalf("same username in another session: %v", err)
	}

	if err := DeleteSession(db)(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := one.Count(ctx); n != 0 {
		t.Errorf("s1 has %d accounts after teardown", n)
	}
	if n, _ := two.Count(ctx); n != 1 {
		t.Errorf("s2 has %d accounts, want 1", n)
	}
}

func TestAccountRepository_WithDirectory(t *testing.T) {
	ctx := context.Background()
	dir := auth.NewDirectory(NewAccountRepository(openTestDB(t), "s1"), nil)

	if err := dir.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatal(err)
	}
	if err := dir.Register(ctx, "alice", "pw2"); !errors.Is(err, auth.ErrDuplicateUser) {
		t.Fatalf("got %v, want ErrDuplicateUser", err)
	}
	if _, err := dir.Verify(ctx, "alice", "pw2"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	if _, err := dir.Verify(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
