// Package models holds server-side domain records shared by repositories
// and services.
package models

import "time"

// User is a registered account. Login is unique and doubles as the storage
// namespace key: all of the user's files live under it.
type User struct {
	ID           string
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}
