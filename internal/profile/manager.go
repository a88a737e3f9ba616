package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ArnabNath1/ArnabUniGuide/internal/account"
	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
	"github.com/ArnabNath1/ArnabUniGuide/internal/mutation"
	"github.com/ArnabNath1/ArnabUniGuide/internal/shortlist"
)

// Remote is the profile half of the remote store. Implemented by remote.Client.
type Remote interface {
	GetProfile(ctx context.Context, email string) (Profile, error)
	SaveProfile(ctx context.Context, p Profile) (Profile, error)
	DeleteAccount(ctx context.Context, email string) error
}

// Serializer runs writes for one key strictly in order. Implemented by mutation.Queue.
type Serializer interface {
	Do(ctx context.Context, key, kind string, fn mutation.Func) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ErrTicketInvalid is returned by Delete for an unknown, used or expired ticket.
var ErrTicketInvalid = errors.New("deletion not confirmed: ticket invalid or expired")

// Ticket is the first step of the two-step account deletion.
type Ticket struct {
	ID        string
	Email     string
	ExpiresAt time.Time
}

// DeletedHook runs after the store acknowledged an account deletion.
type DeletedHook func(ctx context.Context, email string) error

// LoadedHook runs after Load made a freshly fetched profile canonical.
type LoadedHook func(p Profile)

// Manager keeps the canonical profile for one identity in sync with the
// remote store. All writes go through the Serializer keyed by email, so a
// read-modify-write always starts from the latest saved document. Loads run
// outside the Serializer; a load that a save overtook is discarded.
type Manager struct {
	id     account.Identity
	remote Remote
	queue  Serializer
	clock  Clock
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
	gen      uint64 // bumped whenever cached changes
	ticket   *Ticket
	hooks    []DeletedHook
	loaded   []LoadedHook
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(id account.Identity, remote Remote, queue Serializer) *Manager {
	return NewManagerWithClock(id, remote, queue, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(id account.Identity, remote Remote, queue Serializer, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		id:     id,
		remote: remote,
		queue:  queue,
		clock:  clock,
		ttl:    ttl,
		logger: slog.Default(),
	}
}

// Identity returns the identity this manager is bound to.
func (m *Manager) Identity() account.Identity { return m.id }

// OnDeleted registers a hook run after a successful account deletion.
func (m *Manager) OnDeleted(h DeletedHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, h)
	m.mu.Unlock()
}

// OnLoaded registers a hook run each time Load replaces the canonical profile.
func (m *Manager) OnLoaded(h LoadedHook) {
	m.mu.Lock()
	m.loaded = append(m.loaded, h)
	m.mu.Unlock()
}

// Load fetches the profile from the store and makes it canonical.
// apperr.ErrNotFound means the user has not onboarded yet. On any error the
// local state is unchanged. If a save or delete completed while the fetch was
// in flight, the fetched document is stale: it is dropped and the current
// canonical profile is returned instead.
func (m *Manager) Load(ctx context.Context) (Profile, error) {
	m.mu.RLock()
	start := m.gen
	m.mu.RUnlock()

	p, err := m.remote.GetProfile(ctx, m.id.Email)
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile for %s: %w", m.id.Email, err)
	}
	if p.Email != m.id.Email {
		m.logger.Warn("store returned profile for another email", "want", m.id.Email, "got", p.Email)
		return Profile{}, apperr.Sync("load profile", 0, fmt.Errorf("store returned profile for %q", p.Email))
	}

	m.mu.Lock()
	if m.gen != start {
		cur := m.cached
		m.mu.Unlock()
		m.logger.Debug("dropping profile load overtaken by a write", "email", m.id.Email)
		if cur == nil {
			return Profile{}, fmt.Errorf("loading profile for %s: %w", m.id.Email, apperr.ErrNotFound)
		}
		return cur.Clone(), nil
	}
	m.setCachedLocked(p)
	hooks := append([]LoadedHook(nil), m.loaded...)
	m.mu.Unlock()

	for _, h := range hooks {
		h(p.Clone())
	}
	return p.Clone(), nil
}

// Get returns the cached profile while it is fresh and reloads otherwise.
func (m *Manager) Get(ctx context.Context) (Profile, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		p := m.cached.Clone()
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()
	return m.Load(ctx)
}

// Current returns the last loaded or saved profile without a network call.
func (m *Manager) Current() (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cached == nil {
		return Profile{}, false
	}
	return m.cached.Clone(), true
}

// Save overwrites the stored profile with p and adopts the store's answer.
func (m *Manager) Save(ctx context.Context, p Profile) (Profile, error) {
	if p.Email != m.id.Email {
		return Profile{}, &apperr.ValidationError{
			Fields: []string{"email"},
			Reason: fmt.Sprintf("profile belongs to %q, signed in as %q", p.Email, m.id.Email),
		}
	}
	var saved Profile
	err := m.queue.Do(ctx, m.id.Email, "save", func(ctx context.Context) error {
		var err error
		saved, err = m.persist(ctx, p)
		return err
	})
	if err != nil {
		return Profile{}, err
	}
	return saved, nil
}

// Update applies fn to the latest canonical profile and saves the result.
// It fails with apperr.ErrNotFound when no profile has been loaded or created.
func (m *Manager) Update(ctx context.Context, kind string, fn func(*Profile) error) (Profile, error) {
	var saved Profile
	err := m.queue.Do(ctx, m.id.Email, kind, func(ctx context.Context) error {
		cur, ok := m.Current()
		if !ok {
			return fmt.Errorf("%s: profile required: %w", kind, apperr.ErrNotFound)
		}
		if err := fn(&cur); err != nil {
			return err
		}
		cur.Email = m.id.Email
		var err error
		saved, err = m.persist(ctx, cur)
		return err
	})
	if err != nil {
		return Profile{}, err
	}
	return saved, nil
}

// UpdateShortlist implements shortlist.Store.
func (m *Manager) UpdateShortlist(ctx context.Context, fn func(shortlist.Set) shortlist.Set) (shortlist.Set, error) {
	p, err := m.Update(ctx, "shortlist", func(p *Profile) error {
		p.Shortlist = fn(p.Shortlist)
		return nil
	})
	return p.Shortlist, err
}

// UpdateChecklist implements checklist.Store.
func (m *Manager) UpdateChecklist(ctx context.Context, fn func(checklist.Checklist) (checklist.Checklist, error)) (checklist.Checklist, error) {
	p, err := m.Update(ctx, "checklist", func(p *Profile) error {
		next, err := fn(p.Checklist)
		if err != nil {
			return err
		}
		p.Checklist = next
		return nil
	})
	return p.Checklist, err
}

func (m *Manager) persist(ctx context.Context, p Profile) (Profile, error) {
	saved, err := m.remote.SaveProfile(ctx, p)
	if err != nil {
		return Profile{}, fmt.Errorf("saving profile for %s: %w", m.id.Email, err)
	}
	if saved.Email == "" {
		saved = p
	}
	m.adopt(saved)
	return saved.Clone(), nil
}

func (m *Manager) adopt(p Profile) {
	m.mu.Lock()
	m.setCachedLocked(p)
	m.mu.Unlock()
}

func (m *Manager) setCachedLocked(p Profile) {
	cp := p.Clone()
	m.cached = &cp
	m.cachedAt = m.clock.Now()
	m.gen++
}

// deletionTTL bounds how long a deletion ticket stays valid.
const deletionTTL = 2 * time.Minute

// RequestDeletion issues the confirmation ticket Delete requires. A new
// request replaces any outstanding ticket.
func (m *Manager) RequestDeletion() Ticket {
	t := Ticket{
		ID:        uuid.New().String(),
		Email:     m.id.Email,
		ExpiresAt: m.clock.Now().Add(deletionTTL),
	}
	m.mu.Lock()
	m.ticket = &t
	m.mu.Unlock()
	return t
}

// Delete removes the account and all its data from the store. The ticket is
// consumed whatever the outcome. Local state is cleared and the deletion
// hooks run only after the store acknowledged the delete.
func (m *Manager) Delete(ctx context.Context, t Ticket) error {
	m.mu.Lock()
	pending := m.ticket
	m.ticket = nil
	m.mu.Unlock()

	if pending == nil || pending.ID != t.ID || pending.Email != m.id.Email || m.clock.Now().After(pending.ExpiresAt) {
		return ErrTicketInvalid
	}

	err := m.queue.Do(ctx, m.id.Email, "delete", func(ctx context.Context) error {
		return m.remote.DeleteAccount(ctx, m.id.Email)
	})
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", m.id.Email, err)
	}

	m.mu.Lock()
	m.cached = nil
	m.gen++
	hooks := append([]DeletedHook(nil), m.hooks...)
	m.mu.Unlock()

	var errs []error
	for _, h := range hooks {
		if err := h(ctx, m.id.Email); err != nil {
			m.logger.Error("post-deletion cleanup failed", "email", m.id.Email, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
