// Package roles is the admin module that manages custom roles: the settings
// screen, the add/edit/delete handlers, and the one-time import of legacy
// user groups.
package roles

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/mod/semver"

	"github.com/iliyamo/editorial-roles/internal/admin"
	"github.com/iliyamo/editorial-roles/internal/hooks"
	"github.com/iliyamo/editorial-roles/internal/model"
)

const (
	// SettingsSlug is the module query parameter of the roles screen.
	SettingsSlug = "pp-roles-settings"
	// ModuleName is the registry name of the module.
	ModuleName = "roles"
	// DefaultCapManageRoles is the capability required to manage roles
	// before the cap_manage_roles filter runs.
	DefaultCapManageRoles = "pp_manage_roles"
	// AdministratorRole receives the manage capability on install and upgrade.
	AdministratorRole = "administrator"

	nonceAction   = "manage-role"
	maxNameLength = 40

	actionAdd    = "add-role"
	actionEdit   = "edit-role"
	actionDelete = "delete-role"

	// capabilityUpgradeVersion is the last release without the manage
	// capability on administrators.
	capabilityUpgradeVersion = "v1.10.0"
)

// Info describes the module to the registry and the settings screens.
type Info struct {
	Title               string
	ShortDescription    string
	ExtendedDescription string
	Slug                string
	DefaultOptions      map[string]string
	Messages            map[string]string
}

// RoleStore persists roles.
type RoleStore interface {
	Get(ctx context.Context, name string) (*model.Role, error)
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]model.RoleSummary, error)
	Create(ctx context.Context, role model.Role) error
	UpdateDisplayName(ctx context.Context, name, displayName string) error
	AddCapability(ctx context.Context, name, capability string) error
	Delete(ctx context.Context, name string) error
}

// UserStore reads users and edits their role memberships.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ListByRole(ctx context.Context, role string) ([]model.User, error)
	AddRole(ctx context.Context, userID uint64, role string) error
	RemoveRole(ctx context.Context, userID uint64, role string) error
	HasCapability(ctx context.Context, userID uint64, capability string) (bool, error)
}

// TermStore reads and deletes taxonomy terms.
type TermStore interface {
	ListByTaxonomy(ctx context.Context, taxonomy string) ([]model.Term, error)
	Delete(ctx context.Context, id uint64, taxonomy string) error
}

// Nonces issues and checks per-user action tokens.
type Nonces interface {
	Create(userID uint64, action string) (string, error)
	Verify(token string, userID uint64, action string) error
}

// Renderer renders a named template.
type Renderer interface {
	Render(name string, vars any) (string, error)
}

// Deps groups the collaborators of the module.
type Deps struct {
	Roles    RoleStore
	Users    UserStore
	Terms    TermStore
	Nonces   Nonces
	Renderer Renderer
	// UserID resolves the authenticated user of an admin request.
	UserID func(echo.Context) (uint64, error)
}

// Module manages custom roles.
type Module struct {
	deps   Deps
	info   Info
	router *admin.Router

	capManageRoles string

	// CapManageRoles lets other modules rename the manage capability.
	CapManageRoles *hooks.Filter[string, struct{}]
	// RoleChanged fires after every successful role mutation.
	RoleChanged *hooks.Action[RoleEvent]
}

// New returns an uninitialised module. Init must run before it serves
// requests.
func New(d Deps) *Module {
	if d.Roles == nil || d.Users == nil || d.Terms == nil || d.Nonces == nil || d.Renderer == nil || d.UserID == nil {
		panic("nil dependency passed to roles.New")
	}
	return &Module{
		deps: d,
		info: Info{
			Title:               "Roles",
			ShortDescription:    "Roles allows you to create custom roles.",
			ExtendedDescription: "Roles allows you to create custom roles and allow users be on more than one role.",
			Slug:                ModuleName,
			DefaultOptions:      map[string]string{"enabled": "on"},
			Messages: map[string]string{
				"role-added":          "Role created. Feel free to add users to the role.",
				"role-updated":        "Role updated.",
				"role-missing":        "Role doesn't exist.",
				"role-deleted":        "Role deleted.",
				"nonce-failed":        "Cheatin&#8217; uh?",
				"invalid-permissions": "You do not have necessary permissions to complete this action.",
			},
		},
		capManageRoles: DefaultCapManageRoles,
		CapManageRoles: hooks.NewFilter[string, struct{}]("cap_manage_roles"),
		RoleChanged:    hooks.NewAction[RoleEvent]("role_changed"),
	}
}

func (m *Module) Name() string { return ModuleName }

// Info returns the module description.
func (m *Module) Info() Info { return m.info }

// CapabilityName returns the capability handlers check, as last resolved
// by Install, Upgrade or Init.
func (m *Module) CapabilityName() string { return m.capManageRoles }

// Install grants the manage capability to administrators and imports the
// legacy user groups. The grant is an addition to the import-only install of
// earlier releases; without it a fresh install has nobody able to open the
// roles screen.
func (m *Module) Install(ctx context.Context) error {
	if err := m.grantAdministrator(ctx); err != nil {
		return err
	}
	if _, err := m.ImportLegacyGroups(ctx); err != nil {
		return fmt.Errorf("roles install: %w", err)
	}
	return nil
}

// Upgrade runs the data changes for installs that predate the manage
// capability. An empty or unparseable previous version is treated as older.
func (m *Module) Upgrade(ctx context.Context, previous string) error {
	if !needsCapabilityUpgrade(previous) {
		return nil
	}
	if err := m.grantAdministrator(ctx); err != nil {
		return err
	}
	if _, err := m.ImportLegacyGroups(ctx); err != nil {
		return fmt.Errorf("roles upgrade: %w", err)
	}
	return nil
}

// resolveCapability runs the cap_manage_roles filter. Install and Upgrade
// run before Init, so each of them resolves the name itself.
func (m *Module) resolveCapability(ctx context.Context) error {
	capName, err := m.CapManageRoles.Apply(ctx, DefaultCapManageRoles, struct{}{})
	if err != nil {
		return err
	}
	m.capManageRoles = capName
	return nil
}

func (m *Module) grantAdministrator(ctx context.Context) error {
	if err := m.resolveCapability(ctx); err != nil {
		return err
	}
	if err := m.deps.Roles.AddCapability(ctx, AdministratorRole, m.capManageRoles); err != nil {
		return fmt.Errorf("grant %s to %s: %w", m.capManageRoles, AdministratorRole, err)
	}
	return nil
}

func needsCapabilityUpgrade(previous string) bool {
	v := previous
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return true
	}
	return semver.Compare(v, capabilityUpgradeVersion) <= 0
}

// Init resolves the manage capability and registers the screen on r.
func (m *Module) Init(ctx context.Context, r *admin.Router) error {
	if err := m.resolveCapability(ctx); err != nil {
		return err
	}
	m.router = r

	page := admin.ModulesSettingsPage
	r.Handle(http.MethodPost, page, SettingsSlug, actionAdd, m.HandleAddRole)
	r.Handle(http.MethodPost, page, SettingsSlug, actionEdit, m.HandleEditRole)
	r.Handle(http.MethodGet, page, SettingsSlug, actionDelete, m.HandleDeleteRole)
	r.View(page, SettingsSlug, m.ConfigureView)
	r.Enqueue(page, SettingsSlug,
		admin.Asset{Handle: "publishpress-roles-css", Kind: "style", URL: "/assets/admin.css"},
		admin.Asset{Handle: "publishpress-roles-js", Kind: "script", URL: "/assets/admin.js"},
	)
	return nil
}

// link builds a URL to the roles screen. Delete links carry a nonce for
// userID.
func (m *Module) link(userID uint64, args map[string]string) (string, error) {
	out := map[string]string{"module": SettingsSlug, "action": ""}
	for k, v := range args {
		out[k] = v
	}
	if out["action"] == actionDelete {
		nonce, err := m.deps.Nonces.Create(userID, nonceAction)
		if err != nil {
			return "", err
		}
		out["nonce"] = nonce
	}
	return m.router.Link(out), nil
}
