package shortlist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/mutation"
)

// Store applies a shortlist change to the canonical profile and persists it.
// fn receives the latest persisted set. Implemented by profile.Manager.
type Store interface {
	UpdateShortlist(ctx context.Context, fn func(Set) Set) (Set, error)
}

// Toggler flips shortlist membership for one account.
type Toggler struct {
	store  Store
	guard  mutation.Guard
	logger *slog.Logger
}

// NewToggler creates a Toggler persisting through store.
func NewToggler(store Store) *Toggler {
	return &Toggler{store: store, logger: slog.Default()}
}

// Toggle adds name to the shortlist or removes it, then saves the profile.
// While a toggle for name is outstanding a second one returns apperr.ErrBusy.
// The visible shortlist only changes once the save succeeds.
func (t *Toggler) Toggle(ctx context.Context, name string) (added bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, apperr.Invalid("university name is empty")
	}
	if !ValidName(name) {
		return false, apperr.Invalid("university name %q contains a comma and cannot be shortlisted", name)
	}

	release, err := t.guard.Acquire(name)
	if err != nil {
		return false, err
	}
	defer release()

	_, err = t.store.UpdateShortlist(ctx, func(s Set) Set {
		next, a := s.Toggle(name)
		added = a
		return next
	})
	if err != nil {
		return false, fmt.Errorf("toggling %q: %w", name, err)
	}
	t.logger.Debug("shortlist toggled", "university", name, "added", added)
	return added, nil
}

// Busy reports whether a toggle for name is in flight.
func (t *Toggler) Busy(name string) bool {
	return t.guard.Busy(strings.TrimSpace(name))
}
