package editor

import (
	"slices"
	"sync"
	"time"

	"github.com/goodsign/monday"

	"github.com/sakif/memopad/internal/model"
)

// Session is the state shared by the list view and the editor view.
type Session struct {
	mu sync.RWMutex

	memos     []model.Memo
	unsaved   map[string]bool
	selection map[string]struct{}
	query     string
	activeID  string
	draft     *draft
	pending   *Target
	loadErr   error

	locale monday.Locale
}

// NewSession returns an empty session. Date group labels use locale.
func NewSession(locale monday.Locale) *Session {
	if locale == "" {
		locale = monday.LocaleEnUS
	}
	return &Session{
		unsaved:   make(map[string]bool),
		selection: make(map[string]struct{}),
		locale:    locale,
	}
}

// Memos returns a copy of the list in stored order, with the open memo's
// local content overlaid.
func (s *Session) Memos() []model.Memo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlaid()
}

// Memo returns the memo with id as the list shows it.
func (s *Session) Memo(id string) (model.Memo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.overlaid() {
		if m.ID == id {
			return m, true
		}
	}
	return model.Memo{}, false
}

func (s *Session) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Draft returns the open memo's editor state.
func (s *Session) Draft() (DraftView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft == nil {
		return DraftView{}, false
	}
	return s.draft.view(), true
}

// Selection returns the multi-selected ids in list order.
func (s *Session) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedIDs()
}

func (s *Session) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selection[id]
	return ok
}

func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// LoadErr is the error from the most recent failed Load, if any.
func (s *Session) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// ShouldBlockNavigation reports whether leaving the open memo would lose
// edits.
func (s *Session) ShouldBlockNavigation() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shouldBlock()
}

// ShouldWarnOnUnload reports whether closing the whole application should
// ask for confirmation.
func (s *Session) ShouldWarnOnUnload() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shouldBlock() || (s.draft != nil && s.draft.creating)
}

// PendingNavigation returns the navigation waiting on Resolve or Cancel.
func (s *Session) PendingNavigation() (Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return Target{}, false
	}
	return *s.pending, true
}

// View filters the list by the current query and groups it by creation day
// relative to now.
func (s *Session) View(now time.Time) []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	memos := SortByCreated(Filter(s.overlaid(), s.query))
	groups := GroupByDay(memos, now, s.locale)
	for gi := range groups {
		for ii := range groups[gi].Items {
			it := &groups[gi].Items[ii]
			it.Active = it.ID == s.activeID
			_, it.Selected = s.selection[it.ID]
			it.Unsaved = s.unsaved[it.ID]
		}
	}
	return groups
}

func (s *Session) shouldBlock() bool {
	return s.draft != nil && s.draft.state != StateClean
}

func (s *Session) overlaid() []model.Memo {
	out := slices.Clone(s.memos)
	if s.draft == nil {
		return out
	}
	for i := range out {
		if out[i].ID == s.draft.memoID {
			out[i].SetContent(s.draft.local)
		}
	}
	return out
}

func (s *Session) selectedIDs() []string {
	ids := make([]string, 0, len(s.selection))
	for _, m := range s.memos {
		if _, ok := s.selection[m.ID]; ok {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func (s *Session) index(id string) int {
	return slices.IndexFunc(s.memos, func(m model.Memo) bool { return m.ID == id })
}

// open makes id the active memo with a fresh draft.
func (s *Session) open(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.activeID = id
	s.draft = newDraft(s.memos[i], !s.unsaved[id])
	return true
}

func (s *Session) close() {
	s.activeID = ""
	s.draft = nil
}

// replace swaps the memo stored under oldID for m, keeping its position.
func (s *Session) replace(oldID string, m model.Memo) bool {
	i := s.index(oldID)
	if i < 0 {
		return false
	}
	s.memos[i] = m
	if oldID != m.ID {
		delete(s.unsaved, oldID)
		if _, ok := s.selection[oldID]; ok {
			delete(s.selection, oldID)
			s.selection[m.ID] = struct{}{}
		}
		if s.activeID == oldID {
			s.activeID = m.ID
		}
		if s.draft != nil && s.draft.memoID == oldID {
			s.draft.memoID = m.ID
		}
	}
	return true
}

func (s *Session) remove(ids map[string]bool) {
	s.memos = slices.DeleteFunc(s.memos, func(m model.Memo) bool { return ids[m.ID] })
	for id := range ids {
		delete(s.selection, id)
		delete(s.unsaved, id)
	}
}
