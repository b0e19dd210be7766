package models

import "time"

// RefreshToken is a single-use credential that renews a session. It is
// consumed by the refresh that presents it.
type RefreshToken struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// ExpiredAt reports whether the token can no longer be redeemed at now.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
