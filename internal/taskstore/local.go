package taskstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/metrics"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
)

// StorageKey is the key the whole local list is persisted under.
const StorageKey = "study-planner-storage"

type persistedState struct {
	State struct {
		Tasks []model.Task `json:"tasks"`
	} `json:"state"`
	Version int `json:"version"`
}

// LocalStore keeps the list in memory and rewrites it to the key-value store
// after every mutation.
type LocalStore struct {
	list

	kv      storage.KeyValue
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	now     func() time.Time
	entropy io.Reader
}

// NewLocal loads any previously persisted list. A missing or unreadable value
// starts an empty list.
func NewLocal(ctx context.Context, kv storage.KeyValue, log logrus.FieldLogger, m *metrics.Metrics) (*LocalStore, error) {
	if kv == nil {
		return nil, errors.New("taskstore: nil key-value store")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &LocalStore{
		kv:      kv,
		log:     log.WithField("store", ModeLocal),
		metrics: m,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}

	tasks, err := s.load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("discarding persisted tasks")
		tasks = nil
	}
	s.tasks = tasks
	return s, nil
}

func (s *LocalStore) Mode() Mode { return ModeLocal }

func (s *LocalStore) Create(ctx context.Context, d model.Draft) (Ack, error) {
	draft, err := d.Normalize()
	if err != nil {
		s.metrics.TaskMutation(string(ModeLocal), "create", AckRejected.String())
		return AckRejected, err
	}

	var created model.Task
	s.write(func(tasks []model.Task) ([]model.Task, bool) {
		created = model.NewTask(s.newID(), draft, s.now())
		next := append(cloneTasks(tasks), created)
		model.SortByStartTime(next)
		s.persist(ctx, next)
		return next, true
	})

	s.log.WithFields(logrus.Fields{"task_id": created.ID, "start_time": created.StartTime}).Debug("task created")
	s.metrics.TaskMutation(string(ModeLocal), "create", AckApplied.String())
	return AckApplied, nil
}

func (s *LocalStore) Toggle(ctx context.Context, id string) Ack {
	ack := AckNoop
	s.write(func(tasks []model.Task) ([]model.Task, bool) {
		idx := model.IndexOf(tasks, id)
		if idx < 0 {
			return tasks, false
		}
		next := cloneTasks(tasks)
		next[idx].Completed = !next[idx].Completed
		s.persist(ctx, next)
		ack = AckApplied
		return next, true
	})
	s.metrics.TaskMutation(string(ModeLocal), "toggle", ack.String())
	return ack
}

func (s *LocalStore) Delete(ctx context.Context, id string) Ack {
	ack := AckNoop
	s.write(func(tasks []model.Task) ([]model.Task, bool) {
		idx := model.IndexOf(tasks, id)
		if idx < 0 {
			return tasks, false
		}
		next := removeAt(tasks, idx)
		s.persist(ctx, next)
		ack = AckApplied
		return next, true
	})
	s.metrics.TaskMutation(string(ModeLocal), "delete", ack.String())
	return ack
}

// newID must be called under the write lock; the monotonic entropy source is
// not safe for concurrent use.
func (s *LocalStore) newID() string {
	id, err := ulid.New(ulid.Timestamp(s.now()), s.entropy)
	if err != nil {
		return fmt.Sprintf("%d", s.now().UnixNano())
	}
	return strings.ToUpper(id.String())
}

func (s *LocalStore) persist(ctx context.Context, tasks []model.Task) {
	var env persistedState
	env.State.Tasks = tasks
	raw, err := json.Marshal(env)
	if err != nil {
		s.log.WithError(err).Error("encode tasks")
		return
	}
	if err := s.kv.Set(context.WithoutCancel(ctx), StorageKey, raw); err != nil {
		s.log.WithError(err).Error("persist tasks")
	}
}

func (s *LocalStore) load(ctx context.Context) ([]model.Task, error) {
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", StorageKey, err)
	}
	var env persistedState
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", StorageKey, err)
	}

	tasks := make([]model.Task, 0, len(env.State.Tasks))
	for _, t := range env.State.Tasks {
		if err := t.Validate(); err != nil {
			s.log.WithError(err).WithField("task_id", t.ID).Warn("skipping invalid persisted task")
			continue
		}
		tasks = append(tasks, t)
	}
	model.SortByStartTime(tasks)
	return tasks, nil
}
