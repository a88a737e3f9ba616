// Package mutation serializes writes that target the same remote document.
//
// Every profile mutation for one email goes through a single lane, so a
// shortlist toggle and a checklist toggle issued back to back cannot both
// read the same snapshot and overwrite each other's full-document save.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ArnabNath1/ArnabUniGuide/internal/storage"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("mutation queue closed")

// Recorder persists the audit trail of queued mutations.
// Implemented by storage.Store.
type Recorder interface {
	RecordMutation(ctx context.Context, m storage.Mutation) error
	SetMutationStatus(ctx context.Context, id, status, errMsg string) error
}

// Func is one unit of work executed inside a lane.
type Func func(ctx context.Context) error

type job struct {
	ctx  context.Context
	id   string
	key  string
	kind string
	fn   Func
	done chan error
}

type lane struct {
	pending []*job
}

// Queue runs submitted mutations one at a time per key, in submission order.
// Different keys proceed independently. A lane's goroutine exits as soon as
// its backlog drains.
type Queue struct {
	rec    Recorder
	logger *slog.Logger

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
}

// NewQueue creates a Queue. rec may be nil to skip the audit trail.
func NewQueue(rec Recorder) *Queue {
	return &Queue{
		rec:    rec,
		logger: slog.Default(),
		lanes:  make(map[string]*lane),
	}
}

// Do enqueues fn on the lane for key and blocks until it has run or ctx is
// done. A job whose ctx is cancelled before its turn is skipped.
func (q *Queue) Do(ctx context.Context, key, kind string, fn Func) error {
	j := &job{
		ctx:  ctx,
		id:   uuid.New().String(),
		key:  key,
		kind: kind,
		fn:   fn,
		done: make(chan error, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.record(j)
	l, ok := q.lanes[key]
	if !ok {
		l = &lane{}
		q.lanes[key] = l
		q.wg.Add(1)
		go q.drain(key, l)
	}
	l.pending = append(l.pending, j)
	q.mu.Unlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many jobs are waiting or running for key.
func (q *Queue) Pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[key]; ok {
		return len(l.pending)
	}
	return 0
}

// Close rejects new work and waits for queued jobs to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) drain(key string, l *lane) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(l.pending) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		j := l.pending[0]
		q.mu.Unlock()

		err := q.run(j)

		q.mu.Lock()
		l.pending = l.pending[1:]
		q.mu.Unlock()

		j.done <- err
	}
}

func (q *Queue) run(j *job) (err error) {
	if err := j.ctx.Err(); err != nil {
		q.finish(j, err)
		return err
	}
	q.setStatus(j, storage.StatusRunning, "")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation %s panicked: %v", j.kind, r)
		}
		q.finish(j, err)
	}()
	return j.fn(j.ctx)
}

func (q *Queue) finish(j *job, err error) {
	if err != nil {
		q.logger.Warn("mutation failed", "email", j.key, "kind", j.kind, "id", j.id, "error", err)
		q.setStatus(j, storage.StatusFailed, err.Error())
		return
	}
	q.setStatus(j, storage.StatusCompleted, "")
}

// record and setStatus write the audit trail; failures there never fail the mutation.
func (q *Queue) record(j *job) {
	if q.rec == nil {
		return
	}
	m := storage.Mutation{ID: j.id, Email: j.key, Kind: j.kind, Status: storage.StatusQueued}
	if err := q.rec.RecordMutation(context.WithoutCancel(j.ctx), m); err != nil {
		q.logger.Warn("recording mutation", "id", j.id, "error", err)
	}
}

func (q *Queue) setStatus(j *job, status, msg string) {
	if q.rec == nil {
		return
	}
	if err := q.rec.SetMutationStatus(context.WithoutCancel(j.ctx), j.id, status, msg); err != nil {
		q.logger.Warn("updating mutation status", "id", j.id, "status", status, "error", err)
	}
}
