// Package repository contains data access logic separated from HTTP handlers.
// This file implements the role store: role records with a JSON capability
// map, and the aggregate listing used by the roles admin table.
package repository

import (
	"context"      // context carries deadlines for every query
	"database/sql" // sql provides generic database operations and drivers
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/editorial-roles/internal/model"
)

// RoleRepo encapsulates all database queries related to roles.
type RoleRepo struct {
	db *sql.DB
}

// NewRoleRepo constructs a RoleRepo with the provided DB handle.
func NewRoleRepo(db *sql.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// Get fetches a role by name. ErrRoleNotFound is returned when it does not exist.
func (r *RoleRepo) Get(ctx context.Context, name string) (*model.Role, error) {
	const q = `SELECT name, display_name, capabilities FROM roles WHERE name = ?`
	var (
		role model.Role
		caps string
	)
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&role.Name, &role.DisplayName, &caps); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	if err := decodeCapabilities(caps, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// Exists reports whether a role named name is stored.
func (r *RoleRepo) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles WHERE name = ?`, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every role ordered by name together with its member count.
func (r *RoleRepo) List(ctx context.Context) ([]model.RoleSummary, error) {
	const q = `SELECT r.name, r.display_name, r.capabilities, COUNT(ur.user_id)
	           FROM roles r LEFT JOIN user_roles ur ON ur.role_name = r.name
	           GROUP BY r.name, r.display_name, r.capabilities
	           ORDER BY r.name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoleSummary
	for rows.Next() {
		var (
			s    model.RoleSummary
			caps string
		)
		if err := rows.Scan(&s.Name, &s.DisplayName, &caps, &s.UserCount); err != nil {
			return nil, err
		}
		if err := decodeCapabilities(caps, &s.Role); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new role. ErrRoleExists is returned on a duplicate name.
func (r *RoleRepo) Create(ctx context.Context, role model.Role) error {
	caps, err := encodeCapabilities(role.Capabilities)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO roles (name, display_name, capabilities, created_at) VALUES (?, ?, ?, ?)`,
		role.Name, role.DisplayName, caps, time.Now().UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrRoleExists
		}
		return err
	}
	return nil
}

// UpdateDisplayName changes the label of an existing role.
func (r *RoleRepo) UpdateDisplayName(ctx context.Context, name, displayName string) error {
	// MySQL reports zero affected rows for a no-op update, so existence is
	// checked separately instead of relying on RowsAffected.
	ok, err := r.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoleNotFound
	}
	_, err = r.db.ExecContext(ctx, `UPDATE roles SET display_name = ? WHERE name = ?`, displayName, name)
	return err
}

// AddCapability grants capability to the named role.
func (r *RoleRepo) AddCapability(ctx context.Context, name, capability string) error {
	role, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	if role.Capabilities == nil {
		role.Capabilities = map[string]bool{}
	}
	role.Capabilities[capability] = true
	caps, err := encodeCapabilities(role.Capabilities)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE roles SET capabilities = ? WHERE name = ?`, caps, name)
	return err
}

// Delete removes a role and every membership pointing at it. Roles cannot be
// restored once removed; re-adding the name creates a blank role.
func (r *RoleRepo) Delete(ctx context.Context, name string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM user_roles WHERE role_name = ?`, name); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrRoleNotFound
		return err
	}
	return nil
}

func decodeCapabilities(raw string, role *model.Role) error {
	role.Capabilities = map[string]bool{}
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &role.Capabilities); err != nil {
		return fmt.Errorf("decode capabilities of %s: %w", role.Name, err)
	}
	return nil
}

func encodeCapabilities(caps map[string]bool) (string, error) {
	if caps == nil {
		caps = map[string]bool{}
	}
	b, err := json.Marshal(caps)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
