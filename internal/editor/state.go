package editor

import "github.com/sakif/memopad/internal/model"

// State is the sync state of the open memo.
type State int

const (
	StateClean State = iota
	StateDirty
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	}
	return "unknown"
}

// Mode is the view of the open memo.
type Mode int

const (
	ModeEdit Mode = iota
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "edit"
}

// draft is the open memo. canonical is the last content the persistence
// layer confirmed; local is what the user sees.
type draft struct {
	memoID    string
	canonical string
	local     string
	state     State

	// persisted is false for a placeholder whose create has not succeeded.
	persisted bool
	creating  bool

	mode   Mode
	scroll [2]int // per Mode

	cursor        int
	cursorPending bool

	err error // last failed save or create
}

func newDraft(m model.Memo, persisted bool) *draft {
	return &draft{
		memoID:    m.ID,
		canonical: m.Content,
		local:     m.Content,
		state:     StateClean,
		persisted: persisted,
		mode:      ModeEdit,
	}
}

// DraftView is a read-only copy of the open memo's editor state.
type DraftView struct {
	MemoID     string
	Title      string
	Content    string
	State      State
	HasChanges bool
	Saving     bool
	Persisted  bool
	Mode       Mode
	Cursor     int
	Err        error
}

func (d *draft) view() DraftView {
	return DraftView{
		MemoID:     d.memoID,
		Title:      model.DeriveTitle(d.local),
		Content:    d.local,
		State:      d.state,
		HasChanges: d.state != StateClean,
		Saving:     d.state == StateSaving || d.creating,
		Persisted:  d.persisted,
		Mode:       d.mode,
		Cursor:     d.cursor,
		Err:        d.err,
	}
}
