package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialmaps/internal/model"
)

const uniqueViolation = "23505"

const userColumns = `id, email, username, first_name, last_name, avatar_url, push_token, created_at, updated_at`

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Search matches term anywhere in the username, case-insensitively.
func (r *userRepository) Search(ctx context.Context, term string, limit int) ([]model.UserSummary, error) {
	searchQuery := `
		SELECT id, username, first_name, last_name, avatar_url
		FROM users
		WHERE username ILIKE $1 ESCAPE '\'
		ORDER BY username
		LIMIT $2
	`

	users := []model.UserSummary{}
	err := r.db.SelectContext(ctx, &users, searchQuery, "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}

// Upsert keeps an uploaded avatar over the provider image and never overwrites fields with NULL.
func (r *userRepository) Upsert(ctx context.Context, identity model.Identity) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, username, first_name, last_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			email      = COALESCE(EXCLUDED.email, users.email),
			username   = COALESCE(EXCLUDED.username, users.username),
			first_name = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name  = COALESCE(EXCLUDED.last_name, users.last_name),
			avatar_url = COALESCE(users.avatar_url, EXCLUDED.avatar_url),
			updated_at = NOW()
		RETURNING ` + userColumns

	var u model.User
	err := r.db.GetContext(ctx, &u, query,
		identity.ID,
		identity.Email,
		identity.Username,
		identity.FirstName,
		identity.LastName,
		identity.ImageURL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &u, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.User, error) {
	query := `
		UPDATE users SET
			username   = COALESCE($2, username),
			first_name = COALESCE($3, first_name),
			last_name  = COALESCE($4, last_name),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id, req.Username, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return nil, model.ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &u, nil
}

func (r *userRepository) SetAvatarURL(ctx context.Context, id, avatarURL string) error {
	return r.setColumn(ctx, "avatar_url", id, avatarURL)
}

func (r *userRepository) SetPushToken(ctx context.Context, id, token string) error {
	return r.setColumn(ctx, "push_token", id, token)
}

// setColumn is only called with fixed column names.
func (r *userRepository) setColumn(ctx context.Context, column, id, value string) error {
	query := `UPDATE users SET ` + column + ` = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes term match literally inside a LIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
