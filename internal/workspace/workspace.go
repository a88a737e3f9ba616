// Package workspace assembles the engines that serve one signed-in
// identity and implements the flows that span several of them.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ArnabNath1/ArnabUniGuide/internal/account"
	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/catalog"
	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
	"github.com/ArnabNath1/ArnabUniGuide/internal/document"
	"github.com/ArnabNath1/ArnabUniGuide/internal/profile"
	"github.com/ArnabNath1/ArnabUniGuide/internal/session"
	"github.com/ArnabNath1/ArnabUniGuide/internal/shortlist"
)

// ErrOnboardingRequired is returned by operations that need a saved profile.
var ErrOnboardingRequired = errors.New("onboarding required: no profile saved yet")

// Remote is everything the workspace needs from the remote store.
// Implemented by remote.Client.
type Remote interface {
	profile.Remote
	session.Remote
	checklist.Generator
	catalog.Searcher
	ParseDocument(ctx context.Context, name string, r io.Reader) (profile.Extracted, error)
}

// Options configures a Workspace.
type Options struct {
	// Greeting replaces session.Greeting when non-empty.
	Greeting string
	// Keeper, when set, is updated on onboarding and cleared after deletion.
	Keeper *account.Keeper
}

// Workspace holds the engines of one identity. Nothing in it is shared with
// another identity.
type Workspace struct {
	ID        account.Identity
	Profile   *profile.Manager
	Checklist *checklist.Engine
	Shortlist *shortlist.Toggler
	Sessions  *session.Store
	Catalog   *catalog.Catalog

	remote Remote
	keeper *account.Keeper
	logger *slog.Logger
}

// New wires the engines for id. Writes for id are serialized by queue.
func New(id account.Identity, remote Remote, queue profile.Serializer, opts Options) *Workspace {
	mgr := profile.NewManager(id, remote, queue)
	w := &Workspace{
		ID:        id,
		Profile:   mgr,
		Checklist: checklist.NewEngine(remote, mgr),
		Shortlist: shortlist.NewToggler(mgr),
		Sessions:  session.NewStore(id, remote, opts.Greeting),
		Catalog:   catalog.New(remote),
		remote:    remote,
		keeper:    opts.Keeper,
		logger:    slog.Default(),
	}
	mgr.OnDeleted(w.afterDeletion)
	mgr.OnLoaded(func(p profile.Profile) { w.Checklist.Reset(p.Checklist) })
	return w
}

// Open loads the profile and the session list in parallel. A missing
// profile is not an error; a failed session listing is logged and ignored.
func (w *Workspace) Open(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := w.Profile.Load(ctx)
		if apperr.IsNotFound(err) {
			w.logger.Debug("no profile yet", "email", w.ID.Email)
			return nil
		}
		return err
	})
	g.Go(func() error {
		if _, err := w.Sessions.ListSessions(ctx); err != nil {
			w.logger.Warn("listing sessions failed", "email", w.ID.Email, "error", err)
		}
		return nil
	})
	return g.Wait()
}

// Onboarded reports whether a profile has been loaded or saved.
func (w *Workspace) Onboarded() bool {
	_, ok := w.Profile.Current()
	return ok
}

// Onboard validates and saves the first complete profile. The email is
// always the identity's, whatever the draft says.
func (w *Workspace) Onboard(ctx context.Context, draft profile.Profile) (profile.Profile, error) {
	draft = w.own(draft)
	if err := profile.ValidateOnboarding(draft); err != nil {
		return profile.Profile{}, err
	}
	saved, err := w.Profile.Save(ctx, draft)
	if err != nil {
		return profile.Profile{}, err
	}
	w.Checklist.Reset(saved.Checklist)
	if w.keeper != nil {
		if err := w.keeper.Login(ctx, w.ID); err != nil {
			return saved, err
		}
	}
	return saved, nil
}

// ImportDocument sends the CV at path to the parser and merges the
// extracted fields into base with strategy. The result is not saved. The
// second result lists the fields the parser found.
func (w *Workspace) ImportDocument(ctx context.Context, path string, base profile.Profile, strategy profile.MergeStrategy) (profile.Profile, []string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return profile.Profile{}, nil, err
	}
	ex, err := w.remote.ParseDocument(ctx, doc.Name, doc.Reader())
	if err != nil {
		return profile.Profile{}, nil, fmt.Errorf("parsing %s: %w", doc.Name, err)
	}
	merged := w.own(profile.MergeExtracted(base, ex, strategy))
	w.logger.Info("document imported", "email", w.ID.Email, "file", doc.Name, "strategy", strategy.String(), "fields", len(ex.PresentFields()))
	return merged, ex.PresentFields(), nil
}

// Draft returns the current profile, or an empty one for this identity.
func (w *Workspace) Draft() profile.Profile {
	if p, ok := w.Profile.Current(); ok {
		return p
	}
	return profile.Profile{Email: w.ID.Email}
}

// SetField changes one field of the saved profile by name.
func (w *Workspace) SetField(ctx context.Context, name, value string) (profile.Profile, error) {
	p, err := w.Profile.Update(ctx, "set "+name, func(p *profile.Profile) error {
		if !profile.SetByName(p, name, value) {
			return &apperr.ValidationError{
				Fields: []string{name},
				Reason: "unknown field; settable fields: " + strings.Join(profile.SettableNames(), ", "),
			}
		}
		return nil
	})
	return p, w.onboarding(err)
}

// Send posts a chat message with the current profile as context.
func (w *Workspace) Send(ctx context.Context, message string) (session.Reply, error) {
	var summary string
	if p, ok := w.Profile.Current(); ok {
		summary = profile.Summarize(&p)
	} else {
		summary = profile.Summarize(nil)
	}
	return w.Sessions.Send(ctx, message, summary)
}

// ToggleShortlist adds or removes a university from the shortlist.
func (w *Workspace) ToggleShortlist(ctx context.Context, name string) (bool, error) {
	added, err := w.Shortlist.Toggle(ctx, name)
	return added, w.onboarding(err)
}

// GenerateChecklist generates and saves a checklist. Empty universities or
// country fall back to the profile's targets.
func (w *Workspace) GenerateChecklist(ctx context.Context, universities []string, country string) (checklist.Checklist, error) {
	p, ok := w.Profile.Current()
	if !ok {
		return checklist.Checklist{}, ErrOnboardingRequired
	}
	defUnis, defCountry := profile.ChecklistTargets(p)
	if len(universities) == 0 {
		universities = defUnis
	}
	if strings.TrimSpace(country) == "" {
		country = defCountry
	}
	cl, err := w.Checklist.Generate(ctx, universities, country)
	return cl, w.onboarding(err)
}

// ToggleTask flips one checklist task and returns its new state.
func (w *Workspace) ToggleTask(ctx context.Context, key string, index int) (bool, error) {
	done, err := w.Checklist.Toggle(ctx, key, index)
	return done, w.onboarding(err)
}

// RequestDeletion starts the two-step account deletion.
func (w *Workspace) RequestDeletion() profile.Ticket {
	return w.Profile.RequestDeletion()
}

// DeleteAccount completes a deletion started by RequestDeletion.
func (w *Workspace) DeleteAccount(ctx context.Context, t profile.Ticket) error {
	return w.Profile.Delete(ctx, t)
}

func (w *Workspace) afterDeletion(ctx context.Context, email string) error {
	w.Checklist.Reset(checklist.Checklist{})
	w.Sessions.StartNewChat()
	if w.keeper == nil {
		return nil
	}
	return w.keeper.Forget(ctx, email)
}

// own binds p to the workspace identity.
func (w *Workspace) own(p profile.Profile) profile.Profile {
	if p.Email != "" && !strings.EqualFold(strings.TrimSpace(p.Email), w.ID.Email) {
		w.logger.Warn("ignoring foreign email in profile", "email", w.ID.Email, "found", p.Email)
	}
	p.Email = w.ID.Email
	return p
}

// onboarding maps a missing profile to ErrOnboardingRequired.
func (w *Workspace) onboarding(err error) error {
	if err != nil && apperr.IsNotFound(err) {
		return fmt.Errorf("%w (%v)", ErrOnboardingRequired, err)
	}
	return err
}
