package taskstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/metrics"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
)

var ErrSubscriptionClosed = errors.New("taskstore: remote subscription closed")

// SyncAdapter feeds every snapshot of the remote collection into a RemoteStore.
type SyncAdapter struct {
	coll    storage.Collection
	store   *RemoteStore
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewSyncAdapter(coll storage.Collection, store *RemoteStore, log logrus.FieldLogger, m *metrics.Metrics) *SyncAdapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SyncAdapter{
		coll:    coll,
		store:   store,
		log:     log.WithField("component", "sync"),
		metrics: m,
	}
}

// Run blocks until ctx is done or the subscription ends.
func (a *SyncAdapter) Run(ctx context.Context) error {
	snapshots, err := a.coll.Watch(ctx)
	if err != nil {
		return fmt.Errorf("taskstore: watch collection: %w", err)
	}
	a.log.Info("remote sync started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case docs, ok := <-snapshots:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			a.store.Replace(documentsToTasks(docs))
			a.metrics.SyncSnapshot()
			a.log.WithField("tasks", len(docs)).Debug("snapshot applied")
		}
	}
}

func documentsToTasks(docs []storage.TaskDocument) []model.Task {
	out := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		out = append(out, model.Task{
			ID:        doc.ID,
			Title:     doc.Title,
			StartTime: doc.StartTime,
			Duration:  doc.Duration,
			Completed: doc.Completed,
			CreatedAt: doc.CreatedAt.UTC(),
		})
	}
	return out
}
