package models

import "time"

// DesktopAuthCode is a one-time code that lets a desktop client obtain a
// token pair after the user has authenticated in the browser.
type DesktopAuthCode struct {
	ID          string
	UserID      int64
	CodeHash    string
	RedirectURI string
	State       string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// Usable reports whether the code can still be exchanged at now.
func (c *DesktopAuthCode) Usable(now time.Time) bool {
	return c.UsedAt == nil && now.Before(c.ExpiresAt)
}
