package account

import (
	"context"
	"errors"
	"testing"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("  ada@example.com ")
	if err != nil {
		t.Fatal(err)
	}
	if id.Email != "ada@example.com" {
		t.Errorf("Email = %q", id.Email)
	}

	for _, bad := range []string{"", "   ", "not-an-email"} {
		if _, err := NewIdentity(bad); !apperr.IsValidation(err) {
			t.Errorf("NewIdentity(%q) err = %v, want ValidationError", bad, err)
		}
	}
}

func TestKeeper_LoginCurrentForget(t *testing.T) {
	ctx := context.Background()
	k := NewKeeper(openTestStore(t))

	if _, err := k.Current(ctx); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("empty store: got %v, want ErrNoIdentity", err)
	}

	id, _ := NewIdentity("ada@example.com")
	if err := k.Login(ctx, id); err != nil {
		t.Fatal(err)
	}
	got, err := k.Current(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Errorf("Current = %v, want %v", got, id)
	}

	if err := k.Forget(ctx, id.Email); err != nil {
		t.Fatal(err)
	}
	if _, err := k.Current(ctx); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("after Forget: got %v, want ErrNoIdentity", err)
	}
}

func TestKeeper_Logout(t *testing.T) {
	ctx := context.Background()
	k := NewKeeper(openTestStore(t))
	id, _ := NewIdentity("ada@example.com")
	if err := k.Login(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := k.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := k.Current(ctx); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("after Logout: got %v, want ErrNoIdentity", err)
	}
	if err := k.Login(ctx, Identity{}); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Login(zero) = %v, want ErrNoIdentity", err)
	}
}
