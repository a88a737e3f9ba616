package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock makes timestamps strictly increasing so ordering is deterministic.
func fixedClock(s *Store) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) == 0 || len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestActiveAccount_Empty(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ActiveAccount(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSetActiveAccount_SwitchesActive(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixedClock(s)

	if err := s.SetActiveAccount(ctx, "a@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetActiveAccount(ctx, "b@example.com"); err != nil {
		t.Fatal(err)
	}

	acc, err := s.ActiveAccount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Email != "b@example.com" {
		t.Errorf("active = %q, want b@example.com", acc.Email)
	}

	all, err := s.Accounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d accounts, want 2", len(all))
	}
	if all[0].Email != "b@example.com" || all[1].Active {
		t.Errorf("unexpected account order/flags: %+v", all)
	}
}

func TestForgetAccount_RemovesMutations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SetActiveAccount(ctx, "a@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordMutation(ctx, Mutation{ID: "m1", Email: "a@example.com", Kind: "save"}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordMutation(ctx, Mutation{ID: "m2", Email: "other@example.com", Kind: "save"}); err != nil {
		t.Fatal(err)
	}

	if err := s.ForgetAccount(ctx, "a@example.com"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ActiveAccount(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("ActiveAccount after forget: got %v, want ErrNotFound", err)
	}
	ms, err := s.ListMutations(ctx, "a@example.com", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 0 {
		t.Errorf("got %d mutations for forgotten account, want 0", len(ms))
	}
	others, _ := s.ListMutations(ctx, "other@example.com", 10)
	if len(others) != 1 {
		t.Errorf("other account's log touched: %d rows", len(others))
	}
}

func TestMutationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixedClock(s)

	for _, id := range []string{"m1", "m2", "m3"} {
		if err := s.RecordMutation(ctx, Mutation{ID: id, Email: "a@example.com", Kind: "shortlist"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetMutationStatus(ctx, "m1", StatusCompleted, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMutationStatus(ctx, "m2", StatusFailed, "server returned 503"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMutationStatus(ctx, "missing", StatusFailed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: got %v, want ErrNotFound", err)
	}

	ms, err := s.ListMutations(ctx, "a@example.com", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Fatalf("limit ignored: got %d rows", len(ms))
	}
	if ms[0].ID != "m3" || ms[0].Status != StatusQueued {
		t.Errorf("newest = %+v, want m3 queued", ms[0])
	}
	if ms[1].ID != "m2" || ms[1].LastError != "server returned 503" {
		t.Errorf("second = %+v, want m2 failed", ms[1])
	}
}
