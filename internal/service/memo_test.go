package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/memopad/internal/apperror"
)

func newTestMemoService() (*MemoService, *fakeMemoRepo) {
	repo := newFakeMemoRepo()
	return NewMemoService(repo, quietLogger()), repo
}

func TestMemoCreate(t *testing.T) {
	svc, _ := newTestMemoService()

	memo, err := svc.Create(context.Background(), "user-1", "# Hello\nworld")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if memo.ID == "" || memo.UserID != "user-1" {
		t.Errorf("Create() = %+v", memo)
	}
	if memo.Title != "Hello" {
		t.Errorf("Title = %q, want %q", memo.Title, "Hello")
	}
}

func TestMemoCreate_EmptyContentAllowed(t *testing.T) {
	svc, _ := newTestMemoService()

	memo, err := svc.Create(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if memo.Title != "New memo" {
		t.Errorf("Title = %q, want the default title", memo.Title)
	}
}

func TestMemoCreate_Validation(t *testing.T) {
	svc, _ := newTestMemoService()

	tests := []struct {
		name    string
		userID  string
		content string
	}{
		{"no user", "", "x"},
		{"too long", "user-1", strings.Repeat("a", MaxContentLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.userID, tt.content)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestMemoCreate_RepositoryError(t *testing.T) {
	svc, repo := newTestMemoService()
	repo.err = errors.New("disk full")

	_, err := svc.Create(context.Background(), "user-1", "x")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Create() error = %v, want wrapped repository error", err)
	}
}

func TestMemoOwnership(t *testing.T) {
	svc, _ := newTestMemoService()
	ctx := context.Background()
	memo, _ := svc.Create(ctx, "alice", "private")

	if _, err := svc.Get(ctx, "bob", memo.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() by other user error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, "bob", memo.ID, "mine now"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() by other user error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "bob", memo.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() by other user error = %v, want ErrNotFound", err)
	}

	got, err := svc.Get(ctx, "alice", memo.ID)
	if err != nil || got.Content != "private" {
		t.Errorf("Get() by owner = %v, %v", got, err)
	}
}

func TestMemoUpdate(t *testing.T) {
	svc, _ := newTestMemoService()
	ctx := context.Background()
	memo, _ := svc.Create(ctx, "alice", "old")

	updated, err := svc.Update(ctx, "alice", memo.ID, "## Renamed")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "Renamed" || updated.Content != "## Renamed" {
		t.Errorf("Update() = %q/%q", updated.Title, updated.Content)
	}

	if _, err := svc.Update(ctx, "alice", "  ", "x"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Update() with blank id error = %v, want ErrValidation", err)
	}
}

func TestMemoList(t *testing.T) {
	svc, _ := newTestMemoService()
	ctx := context.Background()
	for _, c := range []string{"one", "two", "three"} {
		if _, err := svc.Create(ctx, "alice", c); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	svc.Create(ctx, "bob", "bob's")

	all, err := svc.List(ctx, "alice", 0, 0, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d, want 3", len(all))
	}
	if all[0].Content != "three" {
		t.Errorf("List()[0] = %q, want newest first", all[0].Content)
	}

	page, _ := svc.List(ctx, "alice", 2, -5, "")
	if len(page) != 2 {
		t.Errorf("List(limit 2) returned %d", len(page))
	}

	found, _ := svc.List(ctx, "alice", 0, 0, "TWO")
	if len(found) != 1 {
		t.Errorf("List(query) returned %d, want 1", len(found))
	}
}

func TestMemoRenderHTML(t *testing.T) {
	svc, _ := newTestMemoService()
	ctx := context.Background()
	memo, _ := svc.Create(ctx, "alice", "# Title\n**bold**")

	_, html, err := svc.RenderHTML(ctx, "alice", memo.ID)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	want := "<h1>Title</h1>\n<p><strong>bold</strong></p>\n"
	if html != want {
		t.Errorf("RenderHTML() = %q, want %q", html, want)
	}
}

func TestMemoCodeBlock(t *testing.T) {
	svc, _ := newTestMemoService()
	ctx := context.Background()
	memo, _ := svc.Create(ctx, "alice", "intro\n```python\nprint(1)\n```\n```go\nfmt.Println(2)\n```")

	block, err := svc.CodeBlock(ctx, "alice", memo.ID, 1)
	if err != nil {
		t.Fatalf("CodeBlock() error = %v", err)
	}
	if block.Lang != "go" || block.Code != "fmt.Println(2)" {
		t.Errorf("CodeBlock(1) = %+v", block)
	}

	for _, n := range []int{-1, 2} {
		if _, err := svc.CodeBlock(ctx, "alice", memo.ID, n); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("CodeBlock(%d) error = %v, want ErrNotFound", n, err)
		}
	}
}
