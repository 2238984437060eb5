package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// LoginRequest carries password credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileResponse is the wire shape of a staff profile.
type ProfileResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FullName  *string     `json:"full_name"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewProfileResponse maps a domain profile.
func NewProfileResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
	}
}

// LoginResponse is returned after a successful sign-in.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}

// SessionUser identifies the authenticated identity.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// MeResponse describes the current session.
type MeResponse struct {
	User    SessionUser     `json:"user"`
	Profile ProfileResponse `json:"profile"`
}

// ProfileListResponse wraps the staff roster.
type ProfileListResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

// UploadResponse describes a stored blob.
type UploadResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}
