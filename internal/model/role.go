package model

// Role is a named, capability-bearing group a user can belong to.  It maps
// a row in the `roles` table; Capabilities is persisted as a JSON object of
// capability name to grant flag.
//
// Fields:
//  Name         – unique slug identifying the role (e.g. "editor").
//  DisplayName  – human readable label shown in the admin.
//  Capabilities – granted capabilities.
type Role struct {
	Name         string          `json:"name"`         // roles.name
	DisplayName  string          `json:"display_name"` // roles.display_name
	Capabilities map[string]bool `json:"capabilities"` // roles.capabilities
}

// Can reports whether the role grants capability.
func (r Role) Can(capability string) bool {
	return r.Capabilities[capability]
}

// RoleSummary is a role plus the number of users enrolled in it, used by
// the roles list table.
type RoleSummary struct {
	Role
	UserCount int
}
