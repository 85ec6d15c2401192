package models

import "time"

// RefreshToken is a server-stored, single-use credential. Value is the opaque
// string handed to the client.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Value     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
