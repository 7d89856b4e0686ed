package taskstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
)

func newRemote(t *testing.T) (*RemoteStore, *fakeCollection, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	coll := newFakeCollection()
	return NewRemote(coll, logger, nil), coll, hook
}

func TestRemoteCreateSubmitsWithoutTouchingList(t *testing.T) {
	s, coll, _ := newRemote(t)

	ack, err := s.Create(t.Context(), model.Draft{Title: " Math ", StartTime: "9:05", Duration: 60})
	if err != nil || ack != AckSubmitted {
		t.Fatalf("expected submitted, got ack=%s err=%v", ack, err)
	}
	if len(s.List()) != 0 {
		t.Fatal("remote create must wait for the sync snapshot")
	}
	if len(coll.added) != 1 {
		t.Fatalf("expected one add, got %d", len(coll.added))
	}
	doc := coll.added[0]
	if doc.Title != "Math" || doc.StartTime != "09:05" || doc.Duration != 60 || doc.Completed || doc.CreatedAt.IsZero() {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestRemoteCreateFailureIsSwallowed(t *testing.T) {
	s, coll, hook := newRemote(t)
	coll.failErr = errors.New("unavailable")

	ack, err := s.Create(t.Context(), model.Draft{Title: "Math", StartTime: "09:00", Duration: 60})
	if err != nil || ack != AckFailed {
		t.Fatalf("expected failed ack without error, got ack=%s err=%v", ack, err)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "add task" {
		t.Fatalf("expected logged failure, got %+v", hook.AllEntries())
	}
}

func TestRemoteToggleSendsNegatedCompleted(t *testing.T) {
	s, coll, _ := newRemote(t)
	s.Replace([]model.Task{{ID: "a", Title: "Math", StartTime: "09:00", Duration: 60, Completed: true}})

	if ack := s.Toggle(t.Context(), "a"); ack != AckSubmitted {
		t.Fatalf("expected submitted, got %s", ack)
	}
	if len(coll.updates) != 1 || coll.updates[0] != (updateCall{id: "a", completed: false}) {
		t.Fatalf("unexpected updates: %+v", coll.updates)
	}
	if !s.List()[0].Completed {
		t.Fatal("remote toggle must not edit the local list")
	}
}

func TestRemoteUnknownIDFails(t *testing.T) {
	s, coll, hook := newRemote(t)

	if ack := s.Toggle(t.Context(), "ghost"); ack != AckFailed {
		t.Fatalf("toggle unknown: expected failed, got %s", ack)
	}
	if ack := s.Delete(t.Context(), "ghost"); ack != AckFailed {
		t.Fatalf("delete unknown: expected failed, got %s", ack)
	}
	if len(coll.updates) != 0 || len(coll.deletes) != 0 {
		t.Fatal("unknown ids must not reach the collection")
	}
	if len(hook.AllEntries()) != 2 {
		t.Fatalf("expected both failures logged, got %+v", hook.AllEntries())
	}
}

func TestRemoteBackendFailureIsSwallowed(t *testing.T) {
	s, coll, hook := newRemote(t)
	snapshot := []model.Task{{ID: "a", Title: "Math", StartTime: "09:00", Duration: 60}}
	s.Replace(snapshot)
	coll.failErr = storage.ErrNotFound

	if ack := s.Toggle(t.Context(), "a"); ack != AckFailed {
		t.Fatalf("toggle: expected failed, got %s", ack)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.ErrorLevel || entry.Message != "update task" {
		t.Fatalf("expected logged update failure, got %+v", hook.AllEntries())
	}
	if ack := s.Delete(t.Context(), "a"); ack != AckFailed {
		t.Fatalf("delete: expected failed, got %s", ack)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.ErrorLevel || entry.Message != "delete task" {
		t.Fatalf("expected logged delete failure, got %+v", hook.AllEntries())
	}
	if logged, _ := hook.LastEntry().Data[logrus.ErrorKey].(error); !errors.Is(logged, storage.ErrNotFound) {
		t.Fatalf("expected backend error attached, got %+v", hook.LastEntry().Data)
	}

	got := s.List()
	if len(got) != 1 || got[0] != snapshot[0] {
		t.Fatalf("list must stay unchanged, got %+v", got)
	}
}

func TestRemoteMutationsIgnoreCallerCancellation(t *testing.T) {
	s, coll, _ := newRemote(t)
	s.Replace([]model.Task{{ID: "a", Title: "Math", StartTime: "09:00", Duration: 60}})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := s.Create(ctx, model.Draft{Title: "B", StartTime: "10:00", Duration: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Toggle(ctx, "a")
	s.Delete(ctx, "a")

	for i, err := range coll.ctxErrs {
		if err != nil {
			t.Fatalf("call %d saw cancelled context: %v", i, err)
		}
	}
}

func TestSyncAdapterReplacesListVerbatim(t *testing.T) {
	s, coll, _ := newRemote(t)
	logger, _ := test.NewNullLogger()
	adapter := NewSyncAdapter(coll, s, logger, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- adapter.Run(ctx) }()

	updates := make(chan []model.Task, 4)
	s.Subscribe(func(tasks []model.Task) { updates <- tasks })

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	coll.watchCh <- []storage.TaskDocument{
		{ID: "x", Title: "Late", StartTime: "18:00", Duration: 10, CreatedAt: created},
		{ID: "y", Title: "Early", StartTime: "07:00", Duration: 10, CreatedAt: created},
	}
	got := waitTasks(t, updates)
	if len(got) != 2 || got[0].ID != "x" || got[1].ID != "y" {
		t.Fatalf("expected snapshot order kept verbatim, got %+v", got)
	}

	coll.watchCh <- []storage.TaskDocument{{ID: "y", Title: "Early", StartTime: "07:00", Duration: 10, Completed: true, CreatedAt: created}}
	got = waitTasks(t, updates)
	if len(got) != 1 || !got[0].Completed {
		t.Fatalf("expected full replacement, got %+v", got)
	}
	if list := s.List(); len(list) != 1 || list[0].ID != "y" {
		t.Fatalf("List disagrees with snapshot: %+v", list)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sync adapter did not stop")
	}
}

func TestNewSelectsImplementation(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx := t.Context()

	local, err := New(ctx, Options{Mode: ModeLocal, KV: newMemoryKV(), Logger: logger})
	if err != nil || local.Mode() != ModeLocal {
		t.Fatalf("local: store=%v err=%v", local, err)
	}

	coll := newFakeCollection()
	remote, err := New(ctx, Options{Mode: ModeRemote, Collection: coll, Logger: logger})
	if err != nil || remote.Mode() != ModeRemote {
		t.Fatalf("remote: store=%v err=%v", remote, err)
	}
	updates := make(chan []model.Task, 1)
	remote.Subscribe(func(tasks []model.Task) { updates <- tasks })
	coll.watchCh <- []storage.TaskDocument{{ID: "z", Title: "Synced", StartTime: "12:00", Duration: 5}}
	if got := waitTasks(t, updates); len(got) != 1 || got[0].ID != "z" {
		t.Fatalf("expected remote store to be fed by sync, got %+v", got)
	}

	if _, err := New(ctx, Options{Mode: "cloud"}); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if _, err := New(ctx, Options{Mode: ModeRemote}); err == nil {
		t.Fatal("expected error for remote mode without collection")
	}
}

func waitTasks(t *testing.T, ch <-chan []model.Task) []model.Task {
	t.Helper()
	select {
	case tasks := <-ch:
		return tasks
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for store update")
	}
	return nil
}

func TestRemoteSyncedAfterFirstSnapshot(t *testing.T) {
	s, _, _ := newRemote(t)
	select {
	case <-s.Synced():
		t.Fatal("synced before any snapshot")
	default:
	}

	s.Replace(nil)
	select {
	case <-s.Synced():
	default:
		t.Fatal("an empty snapshot must still mark the store synced")
	}
	s.Replace([]model.Task{{ID: "a", Title: "Math", StartTime: "09:00", Duration: 60}})
}
