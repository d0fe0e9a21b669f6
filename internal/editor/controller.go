package editor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/model"
)

// DraftIDPrefix marks ids of memos that exist only locally.
const DraftIDPrefix = "draft-"

// Controller applies editing operations to a Session.
type Controller struct {
	session *Session
	store   Persistence
	logger  *slog.Logger
	now     func() time.Time
}

func NewController(session *Session, store Persistence, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		session: session,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Controller) Session() *Session { return c.session }

// Load replaces the list with the persisted memos. Local placeholders that
// were never persisted stay at the head.
func (c *Controller) Load(ctx context.Context) error {
	memos, err := c.store.List(ctx)

	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.loadErr = err
		c.logger.Warn("loading memos failed", "error", err, "kind", apperror.KindOf(err))
		return fmt.Errorf("editor: loading memos: %w", err)
	}
	s.loadErr = nil

	var kept []model.Memo
	for _, m := range s.memos {
		if s.unsaved[m.ID] {
			kept = append(kept, m)
		}
	}
	s.memos = append(kept, memos...)

	for id := range s.selection {
		if s.index(id) < 0 {
			delete(s.selection, id)
		}
	}
	if s.activeID != "" {
		if i := s.index(s.activeID); i < 0 {
			s.close()
		} else if s.draft != nil && s.draft.state == StateClean {
			s.draft.canonical = s.memos[i].Content
			s.draft.local = s.memos[i].Content
		}
	}
	c.logger.Debug("memos loaded", "count", len(memos))
	return nil
}

// EditContent replaces the open memo's local content and records the cursor
// offset to restore after the next render.
func (c *Controller) EditContent(text string, cursor int) error {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.draft
	if d == nil {
		return ErrNoActiveMemo
	}
	d.local = text
	d.cursor = cursor
	d.cursorPending = true
	if d.state == StateClean {
		d.state = StateDirty
	}
	return nil
}

// TakeCursorRestore returns the cursor offset recorded by the last edit,
// once.
func (c *Controller) TakeCursorRestore() (int, bool) {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.draft
	if d == nil || !d.cursorPending {
		return 0, false
	}
	d.cursorPending = false
	return d.cursor, true
}

// Save sends the open memo's local content to the persistence layer. A clean
// memo is not sent. Edits made while the save runs keep the memo dirty.
func (c *Controller) Save(ctx context.Context) error {
	s := c.session
	s.mu.Lock()
	d := s.draft
	if d == nil {
		s.mu.Unlock()
		return ErrNoActiveMemo
	}
	if d.creating || d.state == StateSaving {
		s.mu.Unlock()
		return ErrSaveInProgress
	}
	if d.state == StateClean {
		s.mu.Unlock()
		return nil
	}
	id, content, persisted := d.memoID, d.local, d.persisted
	d.state = StateSaving
	d.err = nil
	s.mu.Unlock()

	var (
		saved *model.Memo
		err   error
	)
	if persisted {
		saved, err = c.store.Update(ctx, id, content)
	} else {
		saved, err = c.store.Create(ctx, content)
	}

	s.mu.Lock()
	d = s.draft
	same := d != nil && d.memoID == id
	if err != nil {
		if same {
			d.state = StateDirty
			d.err = err
		}
		s.mu.Unlock()
		c.logger.Warn("saving memo failed", "memo_id", id, "error", err, "kind", apperror.KindOf(err))
		return fmt.Errorf("editor: saving memo %s: %w", id, err)
	}

	if !s.replace(id, *saved) {
		s.mu.Unlock()
		if !persisted {
			return c.deleteOrphan(ctx, id, saved.ID)
		}
		c.logger.Info("memo saved after it was removed from the list", "memo_id", saved.ID)
		return nil
	}
	defer s.mu.Unlock()
	if same {
		d.persisted = true
		d.canonical = saved.Content
		if d.local == content {
			d.local = saved.Content
			d.state = StateClean
		} else {
			d.state = StateDirty
		}
	}
	c.logger.Info("memo saved", "memo_id", saved.ID)
	return nil
}

// ReportScroll records the scroll offset of the current mode.
func (c *Controller) ReportScroll(offset int) {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != nil {
		s.draft.scroll[s.draft.mode] = offset
	}
}

// ToggleMode switches between edit and preview. leaving is the scroll offset
// of the view being left; the returned offset is the one to restore in the
// view being entered.
func (c *Controller) ToggleMode(leaving int) (Mode, int, error) {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.draft
	if d == nil {
		return ModeEdit, 0, ErrNoActiveMemo
	}
	d.scroll[d.mode] = leaving
	if d.mode == ModeEdit {
		d.mode = ModePreview
	} else {
		d.mode = ModeEdit
	}
	return d.mode, d.scroll[d.mode], nil
}

// Create opens a new empty memo at the head of the list. It is a navigation
// and is held back while the open memo has unsaved changes.
func (c *Controller) Create(ctx context.Context) (Decision, error) {
	return c.RequestNavigation(ctx, Target{Kind: TargetNew})
}

// create inserts a placeholder, opens it, and swaps it for the persisted memo
// once the create call returns. On failure the placeholder stays, unsaved.
func (c *Controller) create(ctx context.Context) error {
	now := c.now()
	placeholder := model.Memo{
		ID:        DraftIDPrefix + xid.New().String(),
		Title:     model.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s := c.session
	s.mu.Lock()
	s.memos = append([]model.Memo{placeholder}, s.memos...)
	s.unsaved[placeholder.ID] = true
	clear(s.selection)
	s.open(placeholder.ID)
	s.draft.creating = true
	s.mu.Unlock()

	saved, err := c.store.Create(ctx, "")

	s.mu.Lock()
	d := s.draft
	same := d != nil && d.memoID == placeholder.ID
	if same {
		d.creating = false
	}
	if err != nil {
		if same {
			d.err = err
		}
		s.mu.Unlock()
		c.logger.Warn("creating memo failed", "draft_id", placeholder.ID, "error", err, "kind", apperror.KindOf(err))
		return fmt.Errorf("editor: creating memo: %w", err)
	}

	if !s.replace(placeholder.ID, *saved) {
		s.mu.Unlock()
		return c.deleteOrphan(ctx, placeholder.ID, saved.ID)
	}
	if same {
		d.persisted = true
		d.canonical = saved.Content
		if d.state == StateClean {
			d.local = saved.Content
		}
	}
	s.mu.Unlock()
	c.logger.Info("memo created", "memo_id", saved.ID)
	return nil
}

// deleteOrphan removes a memo whose create call returned after its
// placeholder was deleted locally, so the delete is not undone by the next
// Load.
func (c *Controller) deleteOrphan(ctx context.Context, draftID, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.logger.Warn("deleting memo created after its draft was removed failed", "draft_id", draftID, "memo_id", id, "error", err)
		return fmt.Errorf("editor: deleting memo %s created after its draft was removed: %w", id, err)
	}
	c.logger.Info("memo created after its draft was removed, deleted", "draft_id", draftID, "memo_id", id)
	return nil
}
