package editor

import "context"

// Select handles a click on a list item. With the modifier held it toggles
// id in the multi-selection and never navigates. Without it the
// multi-selection is cleared and id is opened, subject to the navigation
// guard.
func (c *Controller) Select(ctx context.Context, id string, modifier bool) (Decision, error) {
	if modifier {
		c.ToggleSelection(id)
		return Decision{Allowed: true}, nil
	}

	s := c.session
	s.mu.Lock()
	clear(s.selection)
	s.mu.Unlock()

	return c.RequestNavigation(ctx, Target{Kind: TargetMemo, MemoID: id})
}

// ToggleSelection adds id to the multi-selection or removes it.
func (c *Controller) ToggleSelection(id string) {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(id) < 0 {
		return
	}
	if _, ok := s.selection[id]; ok {
		delete(s.selection, id)
	} else {
		s.selection[id] = struct{}{}
	}
}

func (c *Controller) ClearSelection() {
	s := c.session
	s.mu.Lock()
	clear(s.selection)
	s.mu.Unlock()
}
