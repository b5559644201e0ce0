package models

import "time"

// RefreshToken is a stored refresh token. Only the SHA-256 hex digest of the
// token handed to the client is kept.
type RefreshToken struct {
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
