package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

type authFixture struct {
	svc         *AuthService
	tokens      *auth.TokenManager
	revocations *fakeRevocations
	agent       domain.Profile
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hash, err := auth.HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)

	agentID := uuid.NewString()
	orphanID := uuid.NewString()
	identities := &fakeIdentityRepo{byEmail: map[string]domain.Identity{
		"agent@example.com":  {ID: agentID, Email: "agent@example.com", PasswordHash: hash},
		"orphan@example.com": {ID: orphanID, Email: "orphan@example.com", PasswordHash: hash},
	}}
	agent := domain.Profile{ID: agentID, Email: "agent@example.com", Role: domain.RoleAgent}

	f := &authFixture{
		tokens:      auth.NewTokenManager("test-secret", time.Hour),
		revocations: &fakeRevocations{revoked: map[string]time.Time{}},
		agent:       agent,
	}
	f.svc = NewAuthService(AuthDependencies{
		IdentityRepo: identities,
		ProfileRepo:  newFakeProfileRepo(agent),
		Revocations:  f.revocations,
		Tokens:       f.tokens,
	})
	return f
}

func TestSignInSuccess(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.SignIn(context.Background(), " agent@example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, f.agent.ID, res.Profile.ID)
	assert.Equal(t, domain.RoleAgent, res.Profile.Role)

	claims, err := f.tokens.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, f.agent.ID, claims.Subject)
	assert.Equal(t, res.Session.ID, claims.ID)
}

func TestSignInFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignIn(ctx, "", "x")
	requireDomainError(t, err, http.StatusBadRequest, "Email and password are required")

	_, err = f.svc.SignIn(ctx, "agent@example.com", "")
	requireDomainError(t, err, http.StatusBadRequest, "Email and password are required")

	_, err = f.svc.SignIn(ctx, "agent@example.com", "wrong")
	requireDomainError(t, err, http.StatusUnauthorized, "Invalid login credentials")

	_, err = f.svc.SignIn(ctx, "nobody@example.com", "s3cret-pass")
	requireDomainError(t, err, http.StatusUnauthorized, "Invalid login credentials")

	_, err = f.svc.SignIn(ctx, "orphan@example.com", "s3cret-pass")
	requireDomainError(t, err, http.StatusNotFound, "Profile not found. Please contact administrator.")
}

func TestSignOutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	res, err := f.svc.SignIn(context.Background(), "agent@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(context.Background(), res.Session))
	revoked, err := f.revocations.IsRevoked(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestCurrentUser(t *testing.T) {
	f := newAuthFixture(t)

	current, err := f.svc.Current(context.Background(), domain.Session{IdentityID: f.agent.ID, Email: f.agent.Email})
	require.NoError(t, err)
	assert.Equal(t, f.agent.Email, current.Profile.Email)

	_, err = f.svc.Current(context.Background(), domain.Session{IdentityID: uuid.NewString()})
	requireDomainError(t, err, http.StatusNotFound, "Profile not found")
}
