package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/model"
)

// EnsureAuthSchema creates the session-store tables. Users are soft-deleted:
// deleted_at is a tombstone every auth lookup must filter out. One external
// identity maps to at most one account, hence the partial unique index on
// (provider, provider_id).
func (db *Postgres) EnsureAuthSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			provider TEXT NOT NULL,
			provider_id TEXT,
			first_name TEXT,
			last_name TEXT,
			avatar_url TEXT,
			role TEXT NOT NULL DEFAULT 'USER',
			onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
			password_hash TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
		`,
		`
		CREATE UNIQUE INDEX IF NOT EXISTS users_provider_identity_idx
			ON users(provider, provider_id) WHERE provider_id IS NOT NULL
		`,
		`
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS refresh_tokens_user_id_idx ON refresh_tokens(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = `id, email, provider, provider_id, first_name, last_name,
	avatar_url, role, onboarding_completed, password_hash, created_at, updated_at, deleted_at`

func (db *Postgres) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, provider, provider_id, first_name, last_name,
			avatar_url, role, onboarding_completed, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return db.Pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Provider,
		user.ProviderID,
		user.FirstName,
		user.LastName,
		user.AvatarURL,
		user.Role,
		user.OnboardingCompleted,
		user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`
	return db.scanUser(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	return db.scanUser(db.Pool.QueryRow(ctx, query, userID))
}

// UpdateGoogleIdentity re-binds the provider subject id and refreshes the
// profile fields Google owns. Email stays the stable join key.
func (db *Postgres) UpdateGoogleIdentity(ctx context.Context, userID uuid.UUID, providerID string, avatarURL *string) (*model.User, error) {
	query := `
		UPDATE users
		SET provider_id = $2,
			avatar_url = COALESCE($3, avatar_url),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns + `
	`
	return db.scanUser(db.Pool.QueryRow(ctx, query, userID, providerID, avatarURL))
}

func (db *Postgres) SetOnboardingCompleted(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	query := `
		UPDATE users
		SET onboarding_completed = TRUE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns + `
	`
	return db.scanUser(db.Pool.QueryRow(ctx, query, userID))
}

func (db *Postgres) scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Provider,
		&user.ProviderID,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.Role,
		&user.OnboardingCompleted,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
