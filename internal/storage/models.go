package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Mutation statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Account is a locally remembered identity. At most one is active.
type Account struct {
	Email       string
	Active      bool
	LastLoginAt time.Time
}

// Mutation is one audit row for a queued profile write.
type Mutation struct {
	ID        string
	Email     string
	Kind      string // "save", "shortlist", "checklist", ...
	Status    string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type accountRow struct {
	Email       string `db:"email"`
	Active      bool   `db:"active"`
	LastLoginAt string `db:"last_login_at"`
}

type mutationRow struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	Kind      string `db:"kind"`
	Status    string `db:"status"`
	LastError string `db:"last_error"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r accountRow) toAccount() (Account, error) {
	t, err := time.Parse(time.RFC3339Nano, r.LastLoginAt)
	if err != nil {
		return Account{}, err
	}
	return Account{Email: r.Email, Active: r.Active, LastLoginAt: t}, nil
}

func (r mutationRow) toMutation() (Mutation, error) {
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return Mutation{}, err
	}
	updated, err := time.Parse(time.RFC3339Nano, r.UpdatedAt)
	if err != nil {
		return Mutation{}, err
	}
	return Mutation{
		ID:        r.ID,
		Email:     r.Email,
		Kind:      r.Kind,
		Status:    r.Status,
		LastError: r.LastError,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}
