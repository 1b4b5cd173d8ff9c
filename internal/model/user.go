package model

// User represents an account record as stored in the `users` table.
// Role membership is not a column: it lives in `user_roles`, and a user
// may belong to any number of roles.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique login address.
//  PasswordHash – bcrypt hashed password.
//  DisplayName  – name shown in the admin user pickers.
//  Roles        – role names the user belongs to (populated on demand).
type User struct {
	ID           uint64   `json:"id"`           // users.id
	Email        string   `json:"email"`        // users.email
	PasswordHash string   `json:"-"`            // users.password_hash
	DisplayName  string   `json:"display_name"` // users.display_name
	Roles        []string `json:"roles,omitempty"`
}

// Label returns the display name, or the email when no name was set.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
