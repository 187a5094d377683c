package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

// UserRepository defines persistence access for user accounts.
// Lookups return pgx.ErrNoRows when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateLinkedIdentity(ctx context.Context, profile domain.ExternalProfile) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, location, role, provider, provider_subject, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, location, role, provider, provider_subject)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.Email = domain.NormalizeEmail(user.Email)
	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Location,
		user.Role,
		user.Provider,
		user.ProviderSubject,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=$1`
	return scanUser(r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

// CreateLinkedIdentity stores a first-time external login as a plain user.
// A concurrent first login for the same email resolves to the existing row.
func (r *userRepository) CreateLinkedIdentity(ctx context.Context, profile domain.ExternalProfile) (*domain.User, error) {
	query := `
        INSERT INTO users (name, email, password_hash, location, role, provider, provider_subject)
        VALUES ($1, $2, '', '', $3, $4, $5)
        ON CONFLICT (email) DO UPDATE SET updated_at = users.updated_at
        RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query,
		profile.Name,
		domain.NormalizeEmail(profile.Email),
		domain.RoleUser,
		profile.Provider,
		profile.Subject,
	))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Location,
		&user.Role,
		&user.Provider,
		&user.ProviderSubject,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
