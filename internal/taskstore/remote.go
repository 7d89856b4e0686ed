package taskstore

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/metrics"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
)

// RemoteStore forwards mutations to the collection and never edits its own
// list; only Replace, driven by the sync adapter, does.
type RemoteStore struct {
	list

	coll    storage.Collection
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time

	synced     chan struct{}
	syncedOnce sync.Once
}

func NewRemote(coll storage.Collection, log logrus.FieldLogger, m *metrics.Metrics) *RemoteStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RemoteStore{
		coll:    coll,
		log:     log.WithField("store", ModeRemote),
		metrics: m,
		now:     time.Now,
		synced:  make(chan struct{}),
	}
}

func (s *RemoteStore) Mode() Mode { return ModeRemote }

func (s *RemoteStore) Create(ctx context.Context, d model.Draft) (Ack, error) {
	draft, err := d.Normalize()
	if err != nil {
		s.record("create", AckRejected)
		return AckRejected, err
	}

	id, err := s.coll.Add(context.WithoutCancel(ctx), storage.TaskDocument{
		Title:     draft.Title,
		StartTime: draft.StartTime,
		Duration:  draft.Duration,
		Completed: false,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.log.WithError(err).WithField("title", draft.Title).Error("add task")
		return s.record("create", AckFailed), nil
	}
	s.log.WithField("task_id", id).Debug("task submitted")
	return s.record("create", AckSubmitted), nil
}

func (s *RemoteStore) Toggle(ctx context.Context, id string) Ack {
	current, ok := s.find(id)
	if !ok {
		s.log.WithField("task_id", id).Warn("toggle unknown task")
		return s.record("toggle", AckFailed)
	}
	completed := !current.Completed
	if err := s.coll.Update(context.WithoutCancel(ctx), id, storage.TaskPatch{Completed: &completed}); err != nil {
		s.log.WithError(err).WithField("task_id", id).Error("update task")
		return s.record("toggle", AckFailed)
	}
	return s.record("toggle", AckSubmitted)
}

func (s *RemoteStore) Delete(ctx context.Context, id string) Ack {
	if _, ok := s.find(id); !ok {
		s.log.WithField("task_id", id).Warn("delete unknown task")
		return s.record("delete", AckFailed)
	}
	if err := s.coll.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.log.WithError(err).WithField("task_id", id).Error("delete task")
		return s.record("delete", AckFailed)
	}
	return s.record("delete", AckSubmitted)
}

// Replace installs a backend snapshot verbatim, order included.
func (s *RemoteStore) Replace(tasks []model.Task) {
	next := cloneTasks(tasks)
	s.write(func([]model.Task) ([]model.Task, bool) {
		return next, true
	})
	s.syncedOnce.Do(func() { close(s.synced) })
}

// Synced is closed once the first snapshot has been installed, even when it
// is empty.
func (s *RemoteStore) Synced() <-chan struct{} {
	return s.synced
}

func (s *RemoteStore) record(op string, ack Ack) Ack {
	s.metrics.TaskMutation(string(ModeRemote), op, ack.String())
	return ack
}
