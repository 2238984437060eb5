package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestRosterIsAdminOnly(t *testing.T) {
	admin := domain.Profile{ID: uuid.NewString(), Email: "a@example.com", Role: domain.RoleAdmin}
	agent := domain.Profile{ID: uuid.NewString(), Email: "b@example.com", Role: domain.RoleAgent}
	odd := domain.Profile{ID: uuid.NewString(), Email: "c@example.com", Role: domain.Role("viewer")}
	repo := newFakeProfileRepo(admin, agent, odd)
	svc := NewProfileService(repo, bcrypt.MinCost)

	roster, err := svc.Roster(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, []string{roster[0].Email, roster[1].Email})

	_, err = svc.Roster(context.Background(), agent.ID)
	requireDomainError(t, err, http.StatusForbidden, "Admin role required")

	repo.err = errStoreDown
	_, err = svc.Roster(context.Background(), admin.ID)
	requireDomainError(t, err, http.StatusInternalServerError, "Failed to fetch profiles")
}

func TestCreateStaff(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := NewProfileService(repo, bcrypt.MinCost)

	profile, err := svc.CreateStaff(context.Background(), StaffInput{
		Email: "new@example.com", Password: "long-enough", FullName: " New Agent ", Role: domain.RoleAgent,
	})
	require.NoError(t, err)
	require.NotNil(t, profile.FullName)
	assert.Equal(t, "New Agent", *profile.FullName)
	assert.NotEmpty(t, profile.ID)

	identity := repo.identities["new@example.com"]
	assert.Equal(t, profile.ID, identity.ID)
	assert.NoError(t, auth.ComparePassword(identity.PasswordHash, "long-enough"))
}

func TestCreateStaffValidation(t *testing.T) {
	svc := NewProfileService(newFakeProfileRepo(), bcrypt.MinCost)
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, StaffInput{Email: "bad", Password: "long-enough", Role: domain.RoleAgent})
	requireDomainError(t, err, http.StatusBadRequest, "A valid email is required")

	_, err = svc.CreateStaff(ctx, StaffInput{Email: "x@example.com", Password: "short", Role: domain.RoleAgent})
	requireDomainError(t, err, http.StatusBadRequest, "Password must be at least 8 characters")

	_, err = svc.CreateStaff(ctx, StaffInput{Email: "x@example.com", Password: "long-enough", Role: "owner"})
	requireDomainError(t, err, http.StatusBadRequest, "Role must be admin or agent")
}
