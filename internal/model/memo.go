// Package model defines the data structures shared by the server, the editor
// controller, and the CLI.
package model

import (
	"strings"
	"time"
)

// DefaultTitle is shown for a memo whose first line is empty.
const DefaultTitle = "New memo"

// Memo is a single markdown note.
//
// Title is never authored directly: it is always DeriveTitle(Content). The
// server stores it alongside the content so list queries don't have to read
// every body, but every write path recomputes it.
type Memo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetContent replaces the content and re-derives the title.
func (m *Memo) SetContent(content string) {
	m.Content = content
	m.Title = DeriveTitle(content)
}

// DeriveTitle returns the first line of content with leading heading
// markers ("#", "##", ...) removed. Empty results fall back to DefaultTitle.
//
//	DeriveTitle("# Hello\nWorld") == "Hello"
//	DeriveTitle("")               == DefaultTitle
func DeriveTitle(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	first = strings.TrimRight(first, "\r")

	if trimmed := strings.TrimLeft(first, "#"); len(trimmed) < len(first) && strings.HasPrefix(trimmed, " ") {
		first = trimmed
	}

	if first = strings.TrimSpace(first); first == "" {
		return DefaultTitle
	}
	return first
}
