package domain

import "time"

// Session describes an issued bearer token.
type Session struct {
	ID         string
	IdentityID string
	Email      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}
