// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite implements them.
package repository

import (
	"context"

	"github.com/sakif/memopad/internal/model"
)

// ListOptions narrows a memo listing. Limit zero means no limit. Query
// matches title or content, ignoring ASCII case.
type ListOptions struct {
	Limit  int
	Offset int
	Query  string
}

// MemoRepository stores memos. Every read and write is scoped to the owner:
// a memo that belongs to someone else is reported as not found.
type MemoRepository interface {
	Create(ctx context.Context, memo *model.Memo) error
	GetByID(ctx context.Context, userID, id string) (*model.Memo, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]model.Memo, error)
	Update(ctx context.Context, memo *model.Memo) error
	Delete(ctx context.Context, userID, id string) error
}

type UserRepository interface {
	// Upsert creates or refreshes a GitHub account, matching by GitHub ID
	// first and then by email.
	Upsert(ctx context.Context, user *model.User) error
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// SignInCodeRepository stores pending email sign-in codes, at most one per
// email address.
type SignInCodeRepository interface {
	Save(ctx context.Context, code *model.SignInCode) error
	Get(ctx context.Context, email string) (*model.SignInCode, error)
	// Consume deletes the code with id. It fails with ErrNotFound when the
	// code was already consumed, so each code signs in at most once.
	Consume(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
