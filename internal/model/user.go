package model

import "time"

// User is an account that owns memos.
//
// Accounts are created by either sign-in path: GitHub OAuth (GitHubID set)
// or an emailed one-time code (GitHubID zero). Email is the join key between
// the two when GitHub exposes a public address.
type User struct {
	ID        string    `json:"id"`
	GitHubID  int64     `json:"githubId,omitempty"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
