package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dialect names accepted by Migrate.
const (
	MySQL  = "mysql"
	SQLite = "sqlite"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(191) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		display_name VARCHAR(250) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS roles (
		name VARCHAR(191) NOT NULL PRIMARY KEY,
		display_name VARCHAR(191) NOT NULL,
		capabilities TEXT NOT NULL,
		created_at DATETIME NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id BIGINT UNSIGNED NOT NULL,
		role_name VARCHAR(191) NOT NULL,
		PRIMARY KEY (user_id, role_name),
		KEY idx_user_roles_role (role_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS terms (
		term_id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		taxonomy VARCHAR(32) NOT NULL,
		slug VARCHAR(200) NOT NULL,
		name VARCHAR(200) NOT NULL,
		description LONGTEXT NOT NULL,
		KEY idx_terms_taxonomy (taxonomy)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS postmeta (
		meta_id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		post_id BIGINT UNSIGNED NOT NULL,
		meta_key VARCHAR(191) NOT NULL,
		meta_value LONGTEXT NOT NULL,
		KEY idx_postmeta_post_key (post_id, meta_key)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS options (
		name VARCHAR(191) NOT NULL PRIMARY KEY,
		value LONGTEXT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		name TEXT NOT NULL PRIMARY KEY,
		display_name TEXT NOT NULL,
		capabilities TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id INTEGER NOT NULL,
		role_name TEXT NOT NULL,
		PRIMARY KEY (user_id, role_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_roles_role ON user_roles (role_name)`,
	`CREATE TABLE IF NOT EXISTS terms (
		term_id INTEGER PRIMARY KEY AUTOINCREMENT,
		taxonomy TEXT NOT NULL,
		slug TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_terms_taxonomy ON terms (taxonomy)`,
	`CREATE TABLE IF NOT EXISTS postmeta (
		meta_id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL,
		meta_key TEXT NOT NULL,
		meta_value TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_postmeta_post_key ON postmeta (post_id, meta_key)`,
	`CREATE TABLE IF NOT EXISTS options (
		name TEXT NOT NULL PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Migrate creates the tables for the given dialect and seeds the built-in
// administrator role. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	var stmts []string
	switch dialect {
	case MySQL:
		stmts = mysqlSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return seedAdministrator(ctx, db)
}

func seedAdministrator(ctx context.Context, db *sql.DB) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles WHERE name = ?`, "administrator").Scan(&n); err != nil {
		return fmt.Errorf("check administrator role: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO roles (name, display_name, capabilities, created_at) VALUES (?, ?, ?, ?)`,
		"administrator", "Administrator", `{"manage_options":true}`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seed administrator role: %w", err)
	}
	return nil
}
