package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthService coordinates sign-in, sign-out and session lookups.
type AuthService struct {
	identities repository.IdentityRepository
	profiles   repository.ProfileRepository
	revoked    auth.RevocationStore
	tokenMgr   *auth.TokenManager
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	IdentityRepo repository.IdentityRepository
	ProfileRepo  repository.ProfileRepository
	Revocations  auth.RevocationStore
	Tokens       *auth.TokenManager
}

// SignInResult is returned after a successful password sign-in.
type SignInResult struct {
	Token   string
	Session domain.Session
	Profile *domain.Profile
}

// CurrentUser pairs the session identity with its profile.
type CurrentUser struct {
	Session domain.Session
	Profile *domain.Profile
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		identities: deps.IdentityRepo,
		profiles:   deps.ProfileRepo,
		revoked:    deps.Revocations,
		tokenMgr:   deps.Tokens,
	}
}

// SignIn checks the credentials and issues a session. A valid identity
// without a profile is refused because nothing in the dashboard could use it.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("Email and password are required", nil)
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.CompareDummy(password)
			return nil, apperrors.NewUnauthorized("Invalid login credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(identity.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("Invalid login credentials")
	}

	profile, err := s.profiles.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewDomainError(apperrors.CodeNotFound,
				"Profile not found. Please contact administrator.", http.StatusNotFound, nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	token, session, err := s.tokenMgr.GenerateToken(identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &SignInResult{Token: token, Session: session, Profile: profile}, nil
}

// SignOut revokes the session until its natural expiry.
func (s *AuthService) SignOut(ctx context.Context, session domain.Session) error {
	if s.revoked == nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, session.ID, session.ExpiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Current resolves the profile behind an authenticated session.
func (s *AuthService) Current(ctx context.Context, session domain.Session) (*CurrentUser, error) {
	profile, err := loadCallerProfile(ctx, s.profiles, session.IdentityID, "Failed to load profile")
	if err != nil {
		return nil, err
	}
	return &CurrentUser{Session: session, Profile: profile}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
