package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// loadCallerProfile resolves the profile of an authenticated caller. A store
// failure is reported with failMessage so each operation keeps its own text.
func loadCallerProfile(ctx context.Context, profiles repository.ProfileRepository, id, failMessage string) (*domain.Profile, error) {
	profile, err := profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Profile", nil)
		}
		return nil, apperrors.NewStorageError(failMessage, err)
	}
	return profile, nil
}

// ProfileService exposes the staff roster and out-of-band provisioning.
type ProfileService struct {
	profiles   repository.ProfileRepository
	bcryptCost int
}

// StaffInput describes a staff account to provision.
type StaffInput struct {
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

// NewProfileService constructs the service.
func NewProfileService(profiles repository.ProfileRepository, bcryptCost int) *ProfileService {
	return &ProfileService{profiles: profiles, bcryptCost: bcryptCost}
}

// Roster lists every admin and agent profile. Only admins may read it.
func (s *ProfileService) Roster(ctx context.Context, callerID string) ([]domain.Profile, error) {
	caller, err := loadCallerProfile(ctx, s.profiles, callerID, "Failed to fetch profiles")
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("Admin role required")
	}
	roster, err := s.profiles.ListByRoles(ctx, domain.StaffRoles)
	if err != nil {
		return nil, apperrors.NewStorageError("Failed to fetch profiles", err)
	}
	return roster, nil
}

// CreateStaff stores a new identity together with its profile.
func (s *ProfileService) CreateStaff(ctx context.Context, input StaffInput) (*domain.Profile, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("A valid email is required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("Password must be at least 8 characters", nil)
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("Role must be admin or agent", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	identity := &domain.Identity{Email: email, PasswordHash: hash}
	profile := &domain.Profile{Email: email, Role: input.Role}
	if name := strings.TrimSpace(input.FullName); name != "" {
		profile.FullName = &name
	}
	if err := s.profiles.CreateWithIdentity(ctx, identity, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("Email already registered", nil)
		}
		return nil, apperrors.NewStorageError("Failed to create staff account", err)
	}
	return profile, nil
}
