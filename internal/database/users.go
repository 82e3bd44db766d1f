package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/astralume/astral-api/internal/models"
	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a lookup matches no account.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles account rows.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, display_name, lang,
	birth_date, birth_time, birth_city, birth_lat, birth_lon, birth_tz,
	created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Lang,
		&user.BirthDate,
		&user.BirthTime,
		&user.BirthCity,
		&user.BirthLat,
		&user.BirthLon,
		&user.BirthTZ,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// Create inserts a new account. ID, Email, PasswordHash and Lang must be set.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, lang, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.PasswordHash, user.DisplayName, user.Lang, now, now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves an account by id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail retrieves an account by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// UpdateProfile persists display name, language, and birth data.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET display_name = $2, lang = $3,
			birth_date = $4, birth_time = $5, birth_city = $6,
			birth_lat = $7, birth_lon = $8, birth_tz = $9,
			updated_at = $10
		WHERE id = $1
		RETURNING updated_at
	`, user.ID, user.DisplayName, user.Lang,
		user.BirthDate, user.BirthTime, user.BirthCity,
		user.BirthLat, user.BirthLon, user.BirthTZ,
		time.Now(),
	).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// ListWithBirthData returns users whose profile is complete enough to compute
// a chart. The content warmer schedules daily jobs from this set.
func (r *UserRepository) ListWithBirthData(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE birth_date IS NOT NULL AND birth_lat IS NOT NULL
			AND birth_lon IS NOT NULL AND birth_tz IS NOT NULL
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list users with birth data: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.Lang,
			&user.BirthDate, &user.BirthTime, &user.BirthCity,
			&user.BirthLat, &user.BirthLon, &user.BirthTZ,
			&user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users with birth data: %w", err)
	}
	return out, nil
}

// Delete removes an account.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
