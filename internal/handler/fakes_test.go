package handler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/auth"
	"github.com/sakif/memopad/internal/executor"
	"github.com/sakif/memopad/internal/handler"
	"github.com/sakif/memopad/internal/markdown"
	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/service"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeMemos is an in-memory handler.MemoService scoped by user id.
type fakeMemos struct {
	mu     sync.Mutex
	memos  map[string]model.Memo
	nextID int
	err    error // returned by every call when set

	lastLimit, lastOffset int
	lastQuery             string
}

func newFakeMemos() *fakeMemos {
	return &fakeMemos{memos: make(map[string]model.Memo)}
}

func (f *fakeMemos) add(userID, content string, created time.Time) model.Memo {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := model.Memo{
		ID:        fmt.Sprintf("m%d", f.nextID),
		UserID:    userID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	m.SetContent(content)
	f.memos[m.ID] = m
	return m
}

func (f *fakeMemos) List(_ context.Context, userID string, limit, offset int, query string) ([]model.Memo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastOffset, f.lastQuery = limit, offset, query
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Memo
	for i := 1; i <= f.nextID; i++ {
		if m, ok := f.memos[fmt.Sprintf("m%d", i)]; ok && m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemos) Get(_ context.Context, userID, id string) (*model.Memo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.memos[id]
	if !ok || m.UserID != userID {
		return nil, apperror.NotFound("memo", id)
	}
	return &m, nil
}

func (f *fakeMemos) Create(_ context.Context, userID, content string) (*model.Memo, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := f.add(userID, content, time.Now())
	return &m, nil
}

func (f *fakeMemos) Update(ctx context.Context, userID, id, content string) (*model.Memo, error) {
	m, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m.SetContent(content)
	f.memos[id] = *m
	return m, nil
}

func (f *fakeMemos) Delete(ctx context.Context, userID, id string) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.memos, id)
	return nil
}

func (f *fakeMemos) RenderHTML(ctx context.Context, userID, id string) (*model.Memo, string, error) {
	m, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	return m, markdown.RenderHTML(m.Content), nil
}

func (f *fakeMemos) CodeBlock(ctx context.Context, userID, id string, n int) (markdown.CodeBlock, error) {
	m, err := f.Get(ctx, userID, id)
	if err != nil {
		return markdown.CodeBlock{}, err
	}
	blocks := markdown.Parse(m.Content).CodeBlocks()
	if n >= len(blocks) {
		return markdown.CodeBlock{}, apperror.NotFound("code block", id)
	}
	return blocks[n], nil
}

// fakeAccounts is a scripted handler.AuthService.
type fakeAccounts struct {
	requested []string
	requestErr error

	verifyResult *service.AuthResult
	verifyErr    error

	githubUser   *auth.GitHubUser
	githubResult *service.AuthResult

	users map[string]*model.User
}

func (f *fakeAccounts) LoginOrRegisterGitHub(_ context.Context, gh *auth.GitHubUser) (*service.AuthResult, error) {
	f.githubUser = gh
	return f.githubResult, nil
}

func (f *fakeAccounts) RequestEmailCode(_ context.Context, email string) error {
	if f.requestErr != nil {
		return f.requestErr
	}
	f.requested = append(f.requested, email)
	return nil
}

func (f *fakeAccounts) VerifyEmailCode(_ context.Context, email, code string) (*service.AuthResult, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyResult, nil
}

func (f *fakeAccounts) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

// MockExecutor records the request and returns a canned result.
type MockExecutor struct {
	CapturedReq executor.ExecutionRequest
	ReturnRes   *executor.ExecutionResult
	ReturnErr   error
}

func (m *MockExecutor) Execute(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	m.CapturedReq = req
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnRes, nil
}

// asUser attaches an authenticated user id, as auth.RequireAuth would.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

// memoRouter mounts the memo routes so chi URL params resolve.
func memoRouter(h *handler.MemoHandler, exec *handler.ExecuteHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/memos", h.HandleList)
	r.Post("/api/memos", h.HandleCreate)
	r.Get("/api/memos/{id}", h.HandleGetByID)
	r.Patch("/api/memos/{id}", h.HandleUpdate)
	r.Delete("/api/memos/{id}", h.HandleDelete)
	r.Get("/api/memos/{id}/html", h.HandleHTML)
	if exec != nil {
		r.Post("/api/memos/{id}/blocks/{n}/run", exec.HandleRun)
	}
	return r
}
