// Package editor keeps the memo list, the selection, and the memo open for
// editing consistent with the persistence layer.
//
// A Session holds all state: the canonical memo list, the multi-selection,
// the search query, the active memo's draft, and any navigation waiting on a
// save-or-discard answer. A Controller applies user operations to a Session
// and talks to the Persistence collaborator. Every Session mutation happens
// under one lock, so readers never see the list and the draft disagree.
// Persistence calls run outside the lock and reconcile when they return.
package editor

import (
	"context"

	"github.com/sakif/memopad/internal/model"
)

// Persistence stores memos for the current identity. Update and Delete fail
// with apperror.ErrNotFound when the memo is missing or owned by someone else.
type Persistence interface {
	List(ctx context.Context) ([]model.Memo, error)
	Create(ctx context.Context, content string) (*model.Memo, error)
	Update(ctx context.Context, id, content string) (*model.Memo, error)
	Delete(ctx context.Context, id string) error
}

// AuthEvent is delivered to Identity subscribers.
type AuthEvent struct {
	SignedIn bool
	User     *model.User
}

// Identity is the sign-in collaborator. CurrentUser returns (nil, nil) when
// nobody is signed in.
type Identity interface {
	CurrentUser(ctx context.Context) (*model.User, error)
	SignIn(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
	Subscribe(fn func(AuthEvent)) (unsubscribe func())
}
