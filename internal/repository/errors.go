// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the role module to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrRoleNotFound is returned when no role with the requested name exists.
var ErrRoleNotFound = errors.New("role not found")

// ErrRoleExists is returned by Create when the role name is already taken.
// The uniqueness check in the role module runs before Create, so this only
// surfaces when two requests race for the same name.
var ErrRoleExists = errors.New("role already exists")

// ErrUserNotFound is returned when a user id or email does not resolve.
var ErrUserNotFound = errors.New("user not found")

// ErrOptionNotFound is returned when an option has never been stored.
var ErrOptionNotFound = errors.New("option not found")

// isDuplicate reports whether err is a unique-key violation from either
// supported driver (MySQL 1062 or SQLite UNIQUE constraint).
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}
