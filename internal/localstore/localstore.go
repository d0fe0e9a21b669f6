// Package localstore keeps memos in a local SQLite file for one local user.
// It implements editor.Persistence over the same MemoService the server
// uses, so offline edits follow the same rules.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/editor"
	"github.com/sakif/memopad/internal/markdown"
	"github.com/sakif/memopad/internal/model"
	sqliteRepo "github.com/sakif/memopad/internal/repository/sqlite"
	"github.com/sakif/memopad/internal/service"
)

// DefaultUser is the login of the local account when none is configured.
const DefaultUser = "local"

var _ editor.Persistence = (*Store)(nil)

// Store is a local memo database bound to one user.
type Store struct {
	db    *sqliteRepo.DB
	memos *service.MemoService
	user  *model.User
}

// Open opens (or creates) the database at path and the local account for
// login, creating the account on first use.
func Open(ctx context.Context, path, login string, logger *slog.Logger) (*Store, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		login = DefaultUser
	}

	db, err := sqliteRepo.New(path)
	if err != nil {
		return nil, fmt.Errorf("localstore: %w", err)
	}

	users := db.Users()
	email := login + "@localhost"
	user, err := users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		user = &model.User{Login: login, Email: email}
		err = users.Create(ctx, user)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: resolving local user %q: %w", login, err)
	}

	return &Store{
		db:    db,
		memos: service.NewMemoService(db, logger),
		user:  user,
	}, nil
}

// User returns the local account.
func (s *Store) User() *model.User {
	return s.user
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) List(ctx context.Context) ([]model.Memo, error) {
	return s.memos.List(ctx, s.user.ID, 0, 0, "")
}

// Search returns the memos whose title or content contains query.
func (s *Store) Search(ctx context.Context, query string) ([]model.Memo, error) {
	return s.memos.List(ctx, s.user.ID, 0, 0, query)
}

func (s *Store) Get(ctx context.Context, id string) (*model.Memo, error) {
	return s.memos.Get(ctx, s.user.ID, id)
}

func (s *Store) Create(ctx context.Context, content string) (*model.Memo, error) {
	return s.memos.Create(ctx, s.user.ID, content)
}

func (s *Store) Update(ctx context.Context, id, content string) (*model.Memo, error) {
	return s.memos.Update(ctx, s.user.ID, id, content)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.memos.Delete(ctx, s.user.ID, id)
}

// RenderHTML renders a stored memo.
func (s *Store) RenderHTML(ctx context.Context, id string) (string, error) {
	_, html, err := s.memos.RenderHTML(ctx, s.user.ID, id)
	return html, err
}

// CodeBlock returns the n-th fenced block of a stored memo.
func (s *Store) CodeBlock(ctx context.Context, id string, n int) (markdown.CodeBlock, error) {
	return s.memos.CodeBlock(ctx, s.user.ID, id, n)
}
