package repository

import (
	"context"
	"database/sql"
	"errors"
)

// OptionRepo is a key/value store for module state such as the installed
// version and the enabled flag.
type OptionRepo struct{ db *sql.DB }

func NewOptionRepo(db *sql.DB) *OptionRepo { return &OptionRepo{db: db} }

// Get returns the value stored under name or ErrOptionNotFound.
func (r *OptionRepo) Get(ctx context.Context, name string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrOptionNotFound
	}
	return v, err
}

// Set stores value under name, replacing any previous value.
func (r *OptionRepo) Set(ctx context.Context, name, value string) (err error) {
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
	if _, err = tx.ExecContext(ctx, `DELETE FROM options WHERE name = ?`, name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO options (name, value) VALUES (?, ?)`, name, value)
	return err
}
