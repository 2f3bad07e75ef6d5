package model

import "time"

// AdminSession is the server-side record of a login.
// TokenHash is the SHA-256 of the bearer token; the raw token only ever
// lives in the client's cookie or Authorization header.
type AdminSession struct {
	TokenHash    string    `json:"-"`
	AdminUserID  string    `json:"admin_user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastAccessed time.Time `json:"last_accessed"`
	CreatedAt    time.Time `json:"created_at"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

// SessionTouch is one pending last_accessed update.
type SessionTouch struct {
	TokenHash string    `json:"token_hash"`
	At        time.Time `json:"at"`
}
