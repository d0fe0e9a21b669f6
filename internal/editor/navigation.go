package editor

import (
	"context"
	"fmt"

	"github.com/sakif/memopad/internal/apperror"
)

type TargetKind int

const (
	// TargetMemo opens an existing memo.
	TargetMemo TargetKind = iota
	// TargetNew creates and opens a new memo.
	TargetNew
	// TargetClose leaves the editor with no memo open.
	TargetClose
)

// Target is where a navigation goes.
type Target struct {
	Kind   TargetKind
	MemoID string
}

// ReasonUnsavedChanges is the Decision reason when the open memo is dirty.
const ReasonUnsavedChanges = "unsaved changes"

// Decision tells the shell whether a navigation happened. When Allowed is
// false the navigation is pending until Resolve or CancelNavigation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Resolution answers a blocked navigation.
type Resolution int

const (
	ResolveDiscard Resolution = iota
	ResolveSave
)

// RequestNavigation performs target unless the open memo has unsaved
// changes, in which case target replaces any pending navigation and the
// returned Decision is not allowed.
func (c *Controller) RequestNavigation(ctx context.Context, target Target) (Decision, error) {
	s := c.session
	s.mu.Lock()
	if s.shouldBlock() {
		t := target
		s.pending = &t
		s.mu.Unlock()
		c.logger.Debug("navigation blocked", "target_kind", target.Kind, "target_id", target.MemoID)
		return Decision{Reason: ReasonUnsavedChanges}, nil
	}
	s.pending = nil
	s.mu.Unlock()

	return Decision{Allowed: true}, c.navigate(ctx, target)
}

// Resolve answers the pending navigation. ResolveDiscard drops the local
// edits and navigates. ResolveSave saves first and navigates only if the
// save succeeds and left the memo clean. On failure, or when edits made
// during the save are still unsaved (ErrEditedWhileSaving), the navigation
// stays pending.
func (c *Controller) Resolve(ctx context.Context, r Resolution) error {
	s := c.session
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return ErrNoPendingNavigation
	}
	target := *s.pending

	if r == ResolveDiscard {
		if d := s.draft; d != nil && d.state == StateDirty {
			d.local = d.canonical
			d.state = StateClean
			d.cursorPending = false
		}
		s.pending = nil
		s.mu.Unlock()
		return c.navigate(ctx, target)
	}
	s.mu.Unlock()

	if err := c.Save(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.shouldBlock() {
		s.mu.Unlock()
		c.logger.Debug("navigation still blocked after save", "target_kind", target.Kind, "target_id", target.MemoID)
		return ErrEditedWhileSaving
	}
	if s.pending == nil {
		// Cancelled while the save ran.
		s.mu.Unlock()
		return nil
	}
	target = *s.pending
	s.pending = nil
	s.mu.Unlock()
	return c.navigate(ctx, target)
}

// CancelNavigation drops the pending navigation and keeps the open memo as
// it is.
func (c *Controller) CancelNavigation() {
	s := c.session
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func (c *Controller) navigate(ctx context.Context, target Target) error {
	switch target.Kind {
	case TargetNew:
		return c.create(ctx)
	case TargetClose:
		s := c.session
		s.mu.Lock()
		s.close()
		s.mu.Unlock()
		return nil
	case TargetMemo:
		s := c.session
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.activeID == target.MemoID && s.draft != nil {
			return nil
		}
		if !s.open(target.MemoID) {
			return apperror.NotFound("memo", target.MemoID)
		}
		return nil
	}
	return fmt.Errorf("editor: unknown navigation target %d", target.Kind)
}
