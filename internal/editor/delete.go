package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DeleteReport lists the outcome of a bulk delete per id.
type DeleteReport struct {
	Deleted []string
	Failed  map[string]error
}

// Err joins the per-id failures, or returns nil.
func (r DeleteReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("memo %s: %w", id, r.Failed[id]))
	}
	return errors.Join(errs...)
}

// DeleteSelected deletes the multi-selection, or the open memo when nothing
// is selected.
func (c *Controller) DeleteSelected(ctx context.Context) DeleteReport {
	s := c.session
	s.mu.RLock()
	ids := s.selectedIDs()
	if len(ids) == 0 && s.activeID != "" {
		ids = []string{s.activeID}
	}
	s.mu.RUnlock()
	return c.Delete(ctx, ids...)
}

// Delete removes ids concurrently. Each id succeeds or fails on its own;
// failed memos stay in the list. Repeated ids are deleted once. If the open
// memo is deleted the first remaining memo is opened, or none.
func (c *Controller) Delete(ctx context.Context, ids ...string) DeleteReport {
	report := DeleteReport{Failed: make(map[string]error)}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return report
	}

	s := c.session
	s.mu.RLock()
	var local, remote []string
	for _, id := range ids {
		if s.unsaved[id] {
			local = append(local, id)
		} else {
			remote = append(remote, id)
		}
	}
	s.mu.RUnlock()

	results := make([]error, len(remote))
	var wg sync.WaitGroup
	for i, id := range remote {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.store.Delete(ctx, id)
		}()
	}
	wg.Wait()

	deleted := make(map[string]bool, len(ids))
	for _, id := range local {
		deleted[id] = true
		report.Deleted = append(report.Deleted, id)
	}
	for i, id := range remote {
		if err := results[i]; err != nil {
			report.Failed[id] = err
			c.logger.Warn("deleting memo failed", "memo_id", id, "error", err)
			continue
		}
		deleted[id] = true
		report.Deleted = append(report.Deleted, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(deleted)
	if deleted[s.activeID] {
		s.close()
		s.pending = nil
		if len(s.memos) > 0 {
			s.open(s.memos[0].ID)
		}
	}
	c.logger.Info("memos deleted", "deleted", len(report.Deleted), "failed", len(report.Failed))
	return report
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
