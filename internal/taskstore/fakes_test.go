package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sandeepkv93/studyd/internal/storage"
)

type memoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
	writes int
	setErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string][]byte)}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = append([]byte(nil), value...)
	m.writes++
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.values, key)
	return nil
}

type updateCall struct {
	id        string
	completed bool
}

// fakeCollection records writes; snapshots are pushed explicitly by tests.
type fakeCollection struct {
	mu      sync.Mutex
	nextID  int
	added   []storage.TaskDocument
	updates []updateCall
	deletes []string
	failErr error
	ctxErrs []error
	watchCh chan []storage.TaskDocument
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{watchCh: make(chan []storage.TaskDocument, 8)}
}

func (f *fakeCollection) Add(ctx context.Context, in storage.TaskDocument) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.failErr != nil {
		return "", f.failErr
	}
	f.nextID++
	in.ID = fmt.Sprintf("doc-%d", f.nextID)
	f.added = append(f.added, in)
	return in.ID, nil
}

func (f *fakeCollection) Update(ctx context.Context, id string, patch storage.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.failErr != nil {
		return f.failErr
	}
	if patch.Completed == nil {
		return errors.New("empty patch")
	}
	f.updates = append(f.updates, updateCall{id: id, completed: *patch.Completed})
	return nil
}

func (f *fakeCollection) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.failErr != nil {
		return f.failErr
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeCollection) Watch(ctx context.Context) (<-chan []storage.TaskDocument, error) {
	out := make(chan []storage.TaskDocument)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case docs := <-f.watchCh:
				select {
				case out <- docs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
