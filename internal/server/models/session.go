package models

import "time"

// Session maps an opaque token to the login it was issued for.
type Session struct {
	Token     string
	Login     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
