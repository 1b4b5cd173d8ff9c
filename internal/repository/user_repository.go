package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/editorial-roles/internal/model"
	"github.com/iliyamo/editorial-roles/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, displayName string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, display_name, created_at) VALUES (?,?,?,?)",
		email, hash, strings.TrimSpace(displayName), time.Now().UTC())
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT id,email,password_hash,display_name FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT id,email,password_hash,display_name FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.query(ctx, "SELECT id,email,password_hash,display_name FROM users ORDER BY id")
}

// ListByRole returns the users enrolled in role ordered by id.
func (r *UserRepo) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	return r.query(ctx,
		`SELECT u.id,u.email,u.password_hash,u.display_name FROM users u
		 JOIN user_roles ur ON ur.user_id = u.id
		 WHERE ur.role_name = ? ORDER BY u.id`, role)
}

func (r *UserRepo) query(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RoleNames returns the names of the roles userID belongs to.
func (r *UserRepo) RoleNames(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role_name FROM user_roles WHERE user_id=? ORDER BY role_name", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// AddRole enrolls userID in role. Adding an existing membership is a no-op.
func (r *UserRepo) AddRole(ctx context.Context, userID uint64, role string) error {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_roles WHERE user_id=? AND role_name=?", userID, role).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := r.DB.ExecContext(ctx, "INSERT INTO user_roles (user_id, role_name) VALUES (?,?)", userID, role)
	if isDuplicate(err) {
		return nil
	}
	return err
}

// RemoveRole drops userID from role.
func (r *UserRepo) RemoveRole(ctx context.Context, userID uint64, role string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=? AND role_name=?", userID, role)
	return err
}

// HasCapability reports whether any role of userID grants capability.
func (r *UserRepo) HasCapability(ctx context.Context, userID uint64, capability string) (bool, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.capabilities FROM roles r
		 JOIN user_roles ur ON ur.role_name = r.name
		 WHERE ur.user_id = ?`, userID)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return false, err
		}
		caps := map[string]bool{}
		if err := json.Unmarshal([]byte(raw), &caps); err != nil {
			continue
		}
		if caps[capability] {
			return true, nil
		}
	}
	return false, rows.Err()
}
