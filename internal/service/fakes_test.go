package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/repository"
)

// The fakes below are in-memory versions of the repository interfaces.
// Hand-written fakes keep tests readable: you can see exactly what each
// method does, and set an error field to simulate a database failure.

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMemoRepo struct {
	memos  map[string]*model.Memo
	nextID int
	err    error
}

func newFakeMemoRepo() *fakeMemoRepo {
	return &fakeMemoRepo{memos: make(map[string]*model.Memo)}
}

func (f *fakeMemoRepo) Create(_ context.Context, memo *model.Memo) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	memo.ID = fmt.Sprintf("memo-%d", f.nextID)
	memo.CreatedAt = time.Date(2024, 6, 10, 10, f.nextID, 0, 0, time.UTC)
	memo.UpdatedAt = memo.CreatedAt
	memo.SetContent(memo.Content)
	stored := *memo
	f.memos[memo.ID] = &stored
	return nil
}

func (f *fakeMemoRepo) GetByID(_ context.Context, userID, id string) (*model.Memo, error) {
	m, ok := f.memos[id]
	if !ok || m.UserID != userID {
		return nil, apperror.NotFound("memo", id)
	}
	result := *m
	return &result, nil
}

func (f *fakeMemoRepo) List(_ context.Context, userID string, opts repository.ListOptions) ([]model.Memo, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Memo
	for _, m := range f.memos {
		if m.UserID != userID {
			continue
		}
		if opts.Query != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(opts.Query)) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Offset >= len(out) {
		return []model.Memo{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeMemoRepo) Update(_ context.Context, memo *model.Memo) error {
	m, ok := f.memos[memo.ID]
	if !ok || m.UserID != memo.UserID {
		return apperror.NotFound("memo", memo.ID)
	}
	m.SetContent(memo.Content)
	*memo = *m
	return nil
}

func (f *fakeMemoRepo) Delete(_ context.Context, userID, id string) error {
	m, ok := f.memos[id]
	if !ok || m.UserID != userID {
		return apperror.NotFound("memo", id)
	}
	delete(f.memos, id)
	return nil
}

type fakeUserRepo struct {
	users     map[string]*model.User
	nextID    int
	upsertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, existing := range f.users {
		if existing.GitHubID == user.GitHubID || (user.Email != "" && existing.Email == user.Email) {
			existing.GitHubID = user.GitHubID
			existing.Login = user.Login
			existing.Email = user.Email
			existing.AvatarURL = user.AvatarURL
			*user = *existing
			return nil
		}
	}
	return f.Create(context.Background(), user)
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

type fakeCodeRepo struct {
	mu     sync.Mutex
	codes  map[string]*model.SignInCode // by email
	nextID int
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: make(map[string]*model.SignInCode)}
}

func (f *fakeCodeRepo) Save(_ context.Context, code *model.SignInCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	code.ID = fmt.Sprintf("code-%d", f.nextID)
	stored := *code
	f.codes[code.Email] = &stored
	return nil
}

func (f *fakeCodeRepo) Get(_ context.Context, email string) (*model.SignInCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[email]
	if !ok {
		return nil, apperror.NotFound("sign-in code", email)
	}
	result := *c
	return &result, nil
}

func (f *fakeCodeRepo) Consume(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, c := range f.codes {
		if c.ID == id {
			delete(f.codes, email)
			return nil
		}
	}
	return apperror.NotFound("sign-in code", id)
}

func (f *fakeCodeRepo) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for email, c := range f.codes {
		if c.Expired(time.Now()) {
			delete(f.codes, email)
			n++
		}
	}
	return n, nil
}

// recordingMailer keeps every link it was asked to send.
type recordingMailer struct {
	links []string
	codes []string
	err   error
}

func (m *recordingMailer) SendSignInLink(_ context.Context, _, link, code string) error {
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, link)
	m.codes = append(m.codes, code)
	return nil
}
