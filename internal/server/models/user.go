package models

import "time"

// User is an account row. PasswordHash is an Argon2id PHC string, or empty
// once the account has been deactivated.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Deactivated  bool
	CreatedAt    time.Time
}
