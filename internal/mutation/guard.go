package mutation

import (
	"sync"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
)

// Guard tracks in-flight actions by key so a repeated trigger is refused
// instead of submitted twice. The zero value is ready to use.
type Guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// Acquire marks key busy. It returns apperr.ErrBusy when key is already held.
// The returned release func is idempotent.
func (g *Guard) Acquire(key string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy == nil {
		g.busy = make(map[string]struct{})
	}
	if _, ok := g.busy[key]; ok {
		return nil, apperr.ErrBusy
	}
	g.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key is currently held.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[key]
	return ok
}
