package checklist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/mutation"
)

// Generator asks the advisory service for a fresh checklist.
// Implemented by remote.Client.
type Generator interface {
	GenerateChecklist(ctx context.Context, universities []string, country string) (Checklist, error)
}

// Store applies a checklist change to the canonical profile and saves it.
// fn receives the latest persisted checklist. Implemented by profile.Manager.
type Store interface {
	UpdateChecklist(ctx context.Context, fn func(Checklist) (Checklist, error)) (Checklist, error)
}

// Engine owns the visible checklist for one account.
type Engine struct {
	gen    Generator
	store  Store
	guard  mutation.Guard
	logger *slog.Logger

	mu      sync.RWMutex
	visible Checklist
	epoch   uint64 // bumped by Reset
}

// NewEngine creates an Engine. Call Reset with the loaded profile's checklist.
func NewEngine(gen Generator, store Store) *Engine {
	return &Engine{gen: gen, store: store, logger: slog.Default()}
}

// Reset replaces the visible checklist, e.g. after a profile load.
func (e *Engine) Reset(cl Checklist) {
	e.mu.Lock()
	e.visible = cl.Clone()
	e.epoch++
	e.mu.Unlock()
}

// View returns a copy of the visible checklist.
func (e *Engine) View() Checklist {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.visible.Clone()
}

// Generate requests a checklist for universities in country and saves it into
// the profile. Completion state of tasks whose labels survive regeneration is
// kept. If the save fails the generated checklist is returned with the error
// and the visible checklist is left alone.
func (e *Engine) Generate(ctx context.Context, universities []string, country string) (Checklist, error) {
	unis := make([]string, 0, len(universities))
	for _, u := range universities {
		if u = strings.TrimSpace(u); u != "" {
			unis = append(unis, u)
		}
	}
	country = strings.TrimSpace(country)
	switch {
	case len(unis) == 0:
		return Checklist{}, &apperr.ValidationError{Fields: []string{"universities"}}
	case country == "":
		return Checklist{}, &apperr.ValidationError{Fields: []string{"country"}}
	}

	release, err := e.guard.Acquire("generate")
	if err != nil {
		return Checklist{}, err
	}
	defer release()

	generated, err := e.gen.GenerateChecklist(ctx, unis, country)
	if err != nil {
		return Checklist{}, fmt.Errorf("generating checklist: %w", err)
	}
	generated, missing := EnsureKeys(generated, unis)
	if len(missing) > 0 {
		e.logger.Warn("checklist response missing universities", "missing", missing)
	}

	final := generated
	saved, err := e.store.UpdateChecklist(ctx, func(prev Checklist) (Checklist, error) {
		final = CarryOver(prev, generated)
		return final, nil
	})
	if err != nil {
		return final, fmt.Errorf("saving generated checklist: %w", err)
	}

	e.Reset(saved)
	return saved.Clone(), nil
}

// Toggle flips the task at (key, index). The visible checklist changes
// immediately; the profile save happens in the mutation queue and on failure
// only that task is restored. If Reset replaced the visible checklist while
// the save was in flight, the task it flipped no longer exists: a failure
// leaves the new checklist alone and a success shows the saved one.
// It returns the task's new completion state.
func (e *Engine) Toggle(ctx context.Context, key string, index int) (bool, error) {
	release, err := e.guard.Acquire(fmt.Sprintf("task:%s#%d", key, index))
	if err != nil {
		return false, err
	}
	defer release()

	e.mu.Lock()
	next, err := ToggleTask(e.visible, key, index)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	tasks, _ := next.Tasks(key)
	done := tasks[index].Completed
	e.visible = next
	epoch := e.epoch
	e.mu.Unlock()

	saved, err := e.store.UpdateChecklist(ctx, func(cur Checklist) (Checklist, error) {
		return SetCompleted(cur, key, index, done)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	replaced := e.epoch != epoch
	if err != nil {
		if replaced {
			e.logger.Warn("task toggle failed after checklist was replaced", "key", key, "index", index, "error", err)
		} else if rolled, rerr := SetCompleted(e.visible, key, index, !done); rerr == nil {
			e.visible = rolled
			e.logger.Warn("task toggle rolled back", "key", key, "index", index, "error", err)
		}
		return !done, fmt.Errorf("saving task state: %w", err)
	}
	if replaced {
		e.visible = saved.Clone()
		e.epoch++
	}
	return done, nil
}
