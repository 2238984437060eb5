package domain

import "time"

// Identity is a credential record held by the authentication provider.
// An identity may exist without a matching profile.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
