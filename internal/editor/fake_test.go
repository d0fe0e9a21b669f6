package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/model"
)

// fakeStore is an in-memory Persistence. When gate is set, Create and Update
// signal started and then wait for gate to close.
type fakeStore struct {
	mu    sync.Mutex
	memos []model.Memo
	next  int
	now   time.Time

	createCalls []string
	updateCalls []string
	deleteCalls []string

	listErr   error
	createErr error
	updateErr error
	deleteErr map[string]error

	gate    chan struct{}
	started chan struct{}
}

func newFakeStore(now time.Time, memos ...model.Memo) *fakeStore {
	return &fakeStore{memos: memos, now: now, deleteErr: map[string]error{}}
}

func (f *fakeStore) wait(ctx context.Context) error {
	f.mu.Lock()
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	if started != nil {
		started <- struct{}{}
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeStore) List(_ context.Context) ([]model.Memo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.memos), nil
}

func (f *fakeStore) Create(ctx context.Context, content string) (*model.Memo, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, content)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.next++
	m := model.Memo{ID: fmt.Sprintf("memo-%d", f.next), CreatedAt: f.now, UpdatedAt: f.now}
	m.SetContent(content)
	f.memos = append([]model.Memo{m}, f.memos...)
	return &m, nil
}

func (f *fakeStore) Update(ctx context.Context, id, content string) (*model.Memo, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, id)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.memos {
		if f.memos[i].ID == id {
			f.memos[i].SetContent(content)
			f.memos[i].UpdatedAt = f.now
			m := f.memos[i]
			return &m, nil
		}
	}
	return nil, apperror.NotFound("memo", id)
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.memos = slices.DeleteFunc(f.memos, func(m model.Memo) bool { return m.ID == id })
	return nil
}

func (f *fakeStore) content(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.memos {
		if m.ID == id {
			return m.Content
		}
	}
	return ""
}

func (f *fakeStore) calls() (creates, updates, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.createCalls), len(f.updateCalls), len(f.deleteCalls)
}

func memo(id, content string, created time.Time) model.Memo {
	m := model.Memo{ID: id, CreatedAt: created, UpdatedAt: created}
	m.SetContent(content)
	return m
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testNow = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

// loaded returns a controller over a store holding three memos, newest
// first, with none open.
func loaded(t interface{ Fatalf(string, ...any) }) (*Controller, *fakeStore) {
	store := newFakeStore(testNow,
		memo("a", "# Alpha\nfirst", testNow.Add(-1*time.Hour)),
		memo("b", "# Beta\nsecond", testNow.Add(-2*time.Hour)),
		memo("c", "# Gamma\nthird", testNow.Add(-3*time.Hour)),
	)
	c := NewController(NewSession(""), store, discardLogger())
	c.now = func() time.Time { return testNow }
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return c, store
}
