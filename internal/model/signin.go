package model

import "time"

// SignInCode is a pending one-time email sign-in. Only the bcrypt hash of
// the code is stored.
type SignInCode struct {
	ID        string
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (c *SignInCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
