package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/metrics"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/notify"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultBuffer   = 64

	AlertTitle       = "⏰ Time to Study!"
	alertAutoDismiss = 10 * time.Second
)

var ErrNilSource = errors.New("scheduler: nil task source")

// TaskSource is the read side of the task store.
type TaskSource interface {
	List() []model.Task
}

// Alert is emitted once per task occurrence when its start minute arrives.
type Alert struct {
	Key       model.OccurrenceKey
	TaskID    string
	Title     string
	StartTime string
	Duration  int
	FiredAt   time.Time
}

type Options struct {
	Interval   time.Duration
	Buffer     int
	Now        func() time.Time
	Permission notify.PermissionSource
	Notifier   notify.Notifier
	Icon       string
	Logger     logrus.FieldLogger
	Metrics    *metrics.Metrics
}

// Engine polls the task source and raises a notification for every due,
// incomplete task. Each occurrence alerts at most once while it stays in
// the list; rescheduling a task makes it eligible again.
type Engine struct {
	source     TaskSource
	interval   time.Duration
	now        func() time.Time
	permission notify.PermissionSource
	notifier   notify.Notifier
	icon       string
	log        logrus.FieldLogger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	alerted map[model.OccurrenceKey]struct{}
	out     chan Alert
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(source TaskSource, opts Options) (*Engine, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Permission == nil {
		opts.Permission = notify.StaticPermission(notify.PermissionGranted)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NoopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Engine{
		source:     source,
		interval:   opts.Interval,
		now:        opts.Now,
		permission: opts.Permission,
		notifier:   opts.Notifier,
		icon:       opts.Icon,
		log:        opts.Logger.WithField("component", "scheduler"),
		metrics:    opts.Metrics,
		alerted:    make(map[model.OccurrenceKey]struct{}),
		out:        make(chan Alert, opts.Buffer),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// C delivers fired alerts. It is closed after Stop.
func (e *Engine) C() <-chan Alert {
	return e.out
}

// Start asks for notification permission if it was never decided, runs an
// immediate check and then polls every interval.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	if e.permission.Permission() == notify.PermissionDefault {
		state := e.permission.Request()
		e.log.WithField("permission", state.String()).Info("notification permission requested")
	}
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

// Tick runs one check against now and returns the alerts it fired. Without
// notification permission it does nothing, pruning included. Notifications
// are shown after the engine lock is released.
func (e *Engine) Tick(now time.Time) []Alert {
	if e.permission.Permission() != notify.PermissionGranted {
		return nil
	}
	tasks := e.source.List()
	fired, notes := e.collectDue(tasks, now)

	for i, note := range notes {
		if err := e.notifier.Show(note); err != nil {
			e.log.WithError(err).WithField("task_id", fired[i].TaskID).Warn("show notification")
		}
	}
	return fired
}

// collectDue marks due occurrences as alerted, emits them and prunes keys
// that no longer match a task.
func (e *Engine) collectDue(tasks []model.Task, now time.Time) ([]Alert, []notify.Notification) {
	clock := model.Clock(now)

	e.mu.Lock()
	defer e.mu.Unlock()

	fired := make([]Alert, 0)
	var notes []notify.Notification
	for _, task := range tasks {
		if !task.IsDue(clock) {
			continue
		}
		key := task.OccurrenceKey()
		if _, seen := e.alerted[key]; seen {
			continue
		}
		e.alerted[key] = struct{}{}

		alert := Alert{
			Key:       key,
			TaskID:    task.ID,
			Title:     task.Title,
			StartTime: task.StartTime,
			Duration:  task.Duration,
			FiredAt:   now,
		}
		fired = append(fired, alert)
		notes = append(notes, e.notification(task))
		e.metrics.AlertFired()
		e.log.WithFields(logrus.Fields{"task_id": task.ID, "start_time": task.StartTime}).Info("study alert fired")
		e.emitLocked(alert)
	}

	current := make(map[model.OccurrenceKey]struct{}, len(tasks))
	for _, task := range tasks {
		current[task.OccurrenceKey()] = struct{}{}
	}
	for key := range e.alerted {
		if _, ok := current[key]; !ok {
			delete(e.alerted, key)
		}
	}
	return fired, notes
}

// Alerted reports whether the occurrence is in the already-alerted set.
func (e *Engine) Alerted(key model.OccurrenceKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.alerted[key]
	return ok
}

func (e *Engine) notification(task model.Task) notify.Notification {
	return notify.Notification{
		Title: AlertTitle,
		Body:  fmt.Sprintf("%s\nDuration: %d minutes", task.Title, task.Duration),
		Icon:  e.icon,
		Tag:   task.OccurrenceKey().String(),
		Actions: []notify.Action{
			{ID: "start", Label: "Start Now"},
			{ID: "snooze", Label: "Snooze 5min"},
		},
		RequireInteraction: true,
		Timeout:            alertAutoDismiss,
	}
}

// emitLocked must hold e.mu; once stopped the channel is closed by loop.
func (e *Engine) emitLocked(alert Alert) {
	if e.stopped {
		return
	}
	select {
	case e.out <- alert:
	default:
		atomic.AddUint64(&e.dropped, 1)
		e.metrics.AlertDropped()
	}
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	e.Tick(e.now())

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Tick(e.now())
		case <-e.stopCh:
			return
		}
	}
}
