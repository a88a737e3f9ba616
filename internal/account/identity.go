// Package account carries the explicit identity every engine is bound to and
// remembers the signed-in email between runs.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/storage"
)

// ErrNoIdentity is returned when no account is signed in locally.
var ErrNoIdentity = errors.New("no account signed in; run `uniguide login <email>` first")

var validate = validator.New()

// Identity scopes every profile, checklist, shortlist and chat operation to
// one email. It is passed explicitly; nothing reads it from ambient state.
type Identity struct {
	Email string
}

// NewIdentity validates and normalizes email.
func NewIdentity(email string) (Identity, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return Identity{}, &apperr.ValidationError{Fields: []string{"email"}, Reason: "not a valid email address"}
	}
	return Identity{Email: email}, nil
}

// IsZero reports whether no email is set.
func (i Identity) IsZero() bool { return i.Email == "" }

func (i Identity) String() string { return i.Email }

// Store is the local persistence the Keeper needs. Implemented by storage.Store.
type Store interface {
	SetActiveAccount(ctx context.Context, email string) error
	ActiveAccount(ctx context.Context) (storage.Account, error)
	DeactivateAccounts(ctx context.Context) error
	ForgetAccount(ctx context.Context, email string) error
}

// Keeper remembers which identity is signed in on this machine.
type Keeper struct {
	store Store
}

// NewKeeper creates a Keeper over store.
func NewKeeper(store Store) *Keeper {
	return &Keeper{store: store}
}

// Login records id as the active identity.
func (k *Keeper) Login(ctx context.Context, id Identity) error {
	if id.IsZero() {
		return ErrNoIdentity
	}
	if err := k.store.SetActiveAccount(ctx, id.Email); err != nil {
		return fmt.Errorf("remembering %s: %w", id.Email, err)
	}
	return nil
}

// Current returns the active identity or ErrNoIdentity.
func (k *Keeper) Current(ctx context.Context) (Identity, error) {
	acc, err := k.store.ActiveAccount(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return Identity{}, ErrNoIdentity
	}
	if err != nil {
		return Identity{}, err
	}
	return Identity{Email: acc.Email}, nil
}

// Logout deactivates the current identity but keeps its local history.
func (k *Keeper) Logout(ctx context.Context) error {
	return k.store.DeactivateAccounts(ctx)
}

// Forget drops every local trace of email. Called only after the remote store
// acknowledged the account deletion.
func (k *Keeper) Forget(ctx context.Context, email string) error {
	if err := k.store.ForgetAccount(ctx, email); err != nil {
		return fmt.Errorf("forgetting %s: %w", email, err)
	}
	return nil
}
