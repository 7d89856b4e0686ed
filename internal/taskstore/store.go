package taskstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/metrics"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
)

var ErrInvalidMode = errors.New("taskstore: invalid mode")

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModeLocal, ModeRemote:
		return true
	default:
		return false
	}
}

// Ack reports what a mutation did to the authoritative list.
type Ack int

const (
	// AckApplied means the list changed before the call returned.
	AckApplied Ack = iota + 1
	// AckNoop means nothing matched the request.
	AckNoop
	// AckSubmitted means the backend accepted the write; the change becomes
	// visible with the next sync snapshot.
	AckSubmitted
	// AckFailed means the backend call failed. The failure was logged.
	AckFailed
	// AckRejected means the draft did not validate.
	AckRejected
)

func (a Ack) String() string {
	switch a {
	case AckApplied:
		return "applied"
	case AckNoop:
		return "noop"
	case AckSubmitted:
		return "submitted"
	case AckFailed:
		return "failed"
	case AckRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Store is the task list shared by the planner, the scheduler and the HTTP
// surface. Both implementations behave the same to callers.
type Store interface {
	// Create returns an error only for an invalid draft (model.ErrInvalidDraft).
	Create(ctx context.Context, d model.Draft) (Ack, error)
	Toggle(ctx context.Context, id string) Ack
	Delete(ctx context.Context, id string) Ack
	// List returns a copy of the current tasks ordered by start time.
	List() []model.Task
	// Subscribe registers fn to receive the list after every change. fn runs
	// on the writer's goroutine and must not mutate the store.
	Subscribe(fn func([]model.Task)) (cancel func())
	Mode() Mode
}

type Options struct {
	Mode       Mode
	KV         storage.KeyValue
	Collection storage.Collection
	Logger     logrus.FieldLogger
	Metrics    *metrics.Metrics
}

// New builds the store for opts.Mode. In remote mode it also starts the sync
// adapter, which runs until ctx is done.
func New(ctx context.Context, opts Options) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	switch opts.Mode {
	case ModeLocal:
		if opts.KV == nil {
			return nil, errors.New("taskstore: local mode requires a key-value store")
		}
		return NewLocal(ctx, opts.KV, opts.Logger, opts.Metrics)
	case ModeRemote:
		if opts.Collection == nil {
			return nil, errors.New("taskstore: remote mode requires a collection")
		}
		store := NewRemote(opts.Collection, opts.Logger, opts.Metrics)
		adapter := NewSyncAdapter(opts.Collection, store, opts.Logger, opts.Metrics)
		go func() {
			if err := adapter.Run(ctx); err != nil {
				opts.Logger.WithError(err).Error("remote sync stopped")
			}
		}()
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, opts.Mode)
	}
}

// list is the state both stores share: one writer at a time, many readers,
// and ordered delivery to subscribers.
type list struct {
	mu    sync.RWMutex
	tasks []model.Task

	// pubMu is taken before mu is released so notifications leave in write order.
	pubMu sync.Mutex
	subMu sync.Mutex
	subs  map[int]func([]model.Task)
	next  int
}

func (l *list) List() []model.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneTasks(l.tasks)
}

func (l *list) Subscribe(fn func([]model.Task)) func() {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	if l.subs == nil {
		l.subs = make(map[int]func([]model.Task))
	}
	id := l.next
	l.next++
	l.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			l.subMu.Unlock()
		})
	}
}

func (l *list) find(id string) (model.Task, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := model.IndexOf(l.tasks, id)
	if idx < 0 {
		return model.Task{}, false
	}
	return l.tasks[idx], true
}

// write applies fn under the write lock. When fn reports a change the new
// list is delivered to subscribers.
func (l *list) write(fn func(tasks []model.Task) ([]model.Task, bool)) {
	l.mu.Lock()
	next, changed := fn(l.tasks)
	if !changed {
		l.mu.Unlock()
		return
	}
	l.tasks = next
	snapshot := cloneTasks(next)
	l.pubMu.Lock()
	l.mu.Unlock()
	defer l.pubMu.Unlock()

	l.subMu.Lock()
	fns := make([]func([]model.Task), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		fn(cloneTasks(snapshot))
	}
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}

func removeAt(tasks []model.Task, idx int) []model.Task {
	return slices.Delete(cloneTasks(tasks), idx, idx+1)
}
