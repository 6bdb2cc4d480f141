package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// User mirrors the 'users' table.  The password hash is an opaque bcrypt
// string; all password handling lives in the utils package so the struct
// stays a plain data holder.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	GroupID      uint64
	GroupName    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// NormalizeEmail lower-cases and trims an email address.  Email uniqueness
// is case-insensitive, so every lookup and insert goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateWithActivation inserts an inactive user and its activation token in
// a single transaction, so a user row never exists without a path to
// activation.  Returns the new user ID.
func (r *UserRepo) CreateWithActivation(ctx context.Context, email, passwordHash string, groupID uint64, token string, tokenExpiry time.Time) (uint64, error) {
	email = NormalizeEmail(email)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, group_id, is_active) VALUES (?,?,?,FALSE)",
		email, passwordHash, groupID)
	if err != nil {
		// MySQL 1062 = duplicate key on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO activation_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		id, token, tokenExpiry); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email, joining the group name.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)
	var u User
	err := r.DB.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.password_hash, u.group_id, g.name, u.is_active, u.created_at, u.updated_at
		 FROM users u JOIN user_groups g ON g.id = u.group_id
		 WHERE u.email=? LIMIT 1`,
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.GroupID, &u.GroupName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id, joining the group name.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.password_hash, u.group_id, g.name, u.is_active, u.created_at, u.updated_at
		 FROM users u JOIN user_groups g ON g.id = u.group_id
		 WHERE u.id=? LIMIT 1`,
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.GroupID, &u.GroupName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Activate marks the user as active.  Activating an already active user is
// a no-op at the SQL level.
func (r *UserRepo) Activate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=TRUE WHERE id=?", id)
	return err
}

// SetPassword replaces the stored password hash.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
	return err
}

// ChangeGroup moves the user to another group (administrative operation).
func (r *UserRepo) ChangeGroup(ctx context.Context, id uint64, groupID uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET group_id=? WHERE id=?", groupID, id)
	return err
}
