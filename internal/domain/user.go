package domain

import "time"

// User represents a registered account. Email is stored normalized
// (lower-cased, trimmed) and is unique across the table.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}
