package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andikarf/school-core-api/internal/models"
)

const userColumns = "id, email, password_hash, full_name, role, teacher_id, active, last_login, created_at, updated_at"

// UserRepository reads application users for authentication and role checks.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail loads a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin stamps the latest login timestamp.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// HasTeacherRole reports whether the teacher record belongs to an active user
// holding the TEACHER role.
func (r *UserRepository) HasTeacherRole(ctx context.Context, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE teacher_id = $1 AND role = 'TEACHER' AND active LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher role: %w", err)
	}
	return true, nil
}

// HasElevatedRole reports whether the teacher record belongs to an active
// user with a role that bypasses section-assignment checks.
func (r *UserRepository) HasElevatedRole(ctx context.Context, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE teacher_id = $1 AND role IN ('PRINCIPAL', 'ADMIN') AND active LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check elevated role: %w", err)
	}
	return true, nil
}
