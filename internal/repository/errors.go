package repository

import "errors"

// ErrDuplicateEmail is returned when an identity with the same email exists.
var ErrDuplicateEmail = errors.New("email already registered")

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"
