package domain

import "time"

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string // bcrypt encoded
	Active       bool
	Roles        []string // role names, see rbac
	LastLoginAt  *time.Time

	// ResetTokenHash is the fingerprint of the outstanding password reset
	// token, empty when none is pending.
	ResetTokenHash string
	ResetExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
