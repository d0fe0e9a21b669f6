package editor

import "errors"

var (
	ErrNoActiveMemo        = errors.New("editor: no active memo")
	ErrSaveInProgress      = errors.New("editor: save already in progress")
	ErrNoPendingNavigation = errors.New("editor: no navigation awaiting resolution")
	ErrEditedWhileSaving   = errors.New("editor: memo was edited while saving")
)
