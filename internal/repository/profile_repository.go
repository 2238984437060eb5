package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ProfileRepository handles persistence for staff profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	ListByRoles(ctx context.Context, roles []domain.Role) ([]domain.Profile, error)
	// CreateWithIdentity stores a credential record and its profile atomically.
	CreateWithIdentity(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository instantiates the repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `
        SELECT id::text, email, full_name, role, created_at
        FROM profiles WHERE id=$1`

	return scanProfile(r.pool.QueryRow(ctx, query, id))
}

func (r *profileRepository) ListByRoles(ctx context.Context, roles []domain.Role) ([]domain.Profile, error) {
	const query = `
        SELECT id::text, email, full_name, role, created_at
        FROM profiles WHERE role = ANY($1)
        ORDER BY created_at`

	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Profile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *profile)
	}
	return result, rows.Err()
}

func (r *profileRepository) CreateWithIdentity(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertIdentity = `
            INSERT INTO auth_identities (email, password_hash)
            VALUES ($1, $2)
            RETURNING id::text, created_at`
		if err := tx.QueryRow(ctx, insertIdentity, identity.Email, identity.PasswordHash).
			Scan(&identity.ID, &identity.CreatedAt); err != nil {
			return err
		}

		const insertProfile = `
            INSERT INTO profiles (id, email, full_name, role)
            VALUES ($1, $2, $3, $4)
            RETURNING created_at`
		profile.ID = identity.ID
		return tx.QueryRow(ctx, insertProfile, profile.ID, profile.Email, profile.FullName, string(profile.Role)).
			Scan(&profile.CreatedAt)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		profile domain.Profile
		role    string
	)
	if err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&role,
		&profile.CreatedAt,
	); err != nil {
		return nil, err
	}
	profile.Role = domain.Role(role)
	return &profile, nil
}
