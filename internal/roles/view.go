package roles

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/editorial-roles/internal/admin"
	"github.com/iliyamo/editorial-roles/internal/model"
	"github.com/iliyamo/editorial-roles/internal/repository"
)

var viewLabels = map[string]string{
	"add_new":           "Add New Role",
	"edit":              "Edit Role",
	"name":              "Name (ID)",
	"name_description":  `The name used to identify the role. Only use latin chars and "-".`,
	"display_name":      "Display name",
	"users":             "Users",
	"users_description": "Add users that belongs to this role.",
}

// formState is what the form shows: the values being edited and the
// validation messages of a rejected submission.
type formState struct {
	Action string
	Form   roleForm
	Errors FormErrors
	// Loaded is set when Form came from the store rather than the request;
	// members are then read from the store as well.
	Loaded bool
}

type roleRow struct {
	model.RoleSummary
	EditURL   string
	DeleteURL string
}

// ConfigureView renders the roles screen: the role table and the add or
// edit form. Only users holding the manage capability may see it.
func (m *Module) ConfigureView(c echo.Context) error {
	uid, err := m.deps.UserID(c)
	if err != nil {
		return m.die(c, errInvalidPermissions)
	}
	if _, err := m.canManage(c, uid); err != nil {
		return m.die(c, err)
	}
	action := c.QueryParam("action")
	if action == "" {
		action = actionAdd
	}
	st := formState{
		Action: action,
		Form: roleForm{
			Name:        c.FormValue("name"),
			DisplayName: c.FormValue("display_name"),
		},
	}
	if action == actionEdit {
		if id := sanitizeName(c.QueryParam("role-id")); id != "" {
			role, err := m.deps.Roles.Get(c.Request().Context(), id)
			switch {
			case err == nil:
				st.Form = roleForm{Name: role.Name, DisplayName: role.DisplayName}
				st.Loaded = true
			case !errors.Is(err, repository.ErrRoleNotFound):
				return m.die(c, err)
			}
		}
	}
	return m.render(c, http.StatusOK, st)
}

// render writes the roles screen for st with status.
func (m *Module) render(c echo.Context, status int, st formState) error {
	uid, err := m.deps.UserID(c)
	if err != nil {
		return m.die(c, errInvalidPermissions)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	users, err := m.deps.Users.List(ctx)
	if err != nil {
		return m.die(c, err)
	}
	selected := map[uint64]bool{}
	if st.Loaded || (st.Form.Name != "" && st.Errors.Empty()) {
		members, err := m.deps.Users.ListByRole(ctx, st.Form.Name)
		if err != nil {
			return m.die(c, err)
		}
		for _, u := range members {
			selected[u.ID] = true
		}
	} else {
		for _, id := range st.Form.UserIDs {
			selected[id] = true
		}
	}

	rows, err := m.roleRows(ctx, uid)
	if err != nil {
		return m.die(c, err)
	}

	linkArgs := map[string]string{}
	if st.Action == actionEdit && st.Form.Name != "" {
		linkArgs["role-id"] = st.Form.Name
	}
	formAction, err := m.link(uid, linkArgs)
	if err != nil {
		return m.die(c, err)
	}
	nonce, err := m.deps.Nonces.Create(uid, nonceAction)
	if err != nil {
		return m.die(c, err)
	}
	errs := st.Errors
	if errs == nil {
		errs = FormErrors{}
	}

	html, err := m.deps.Renderer.Render("settings_tab_roles", map[string]any{
		"Assets":     m.router.Assets(admin.ModulesSettingsPage, SettingsSlug),
		"Message":    m.info.Messages[c.QueryParam("message")],
		"Errors":     errs,
		"Roles":      rows,
		"Action":     st.Action,
		"Labels":     viewLabels,
		"FormAction": formAction,
		"Nonce":      nonce,
		"Role":       model.Role{Name: st.Form.Name, DisplayName: st.Form.DisplayName},
		"Users":      users,
		"RoleUsers":  selected,
	})
	if err != nil {
		return m.die(c, err)
	}
	return c.HTML(status, html)
}

func (m *Module) roleRows(ctx context.Context, uid uint64) ([]roleRow, error) {
	roles, err := m.deps.Roles.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]roleRow, 0, len(roles))
	for _, r := range roles {
		edit, err := m.link(uid, map[string]string{"action": actionEdit, "role-id": r.Name})
		if err != nil {
			return nil, err
		}
		del, err := m.link(uid, map[string]string{"action": actionDelete, "role-id": r.Name})
		if err != nil {
			return nil, err
		}
		rows = append(rows, roleRow{RoleSummary: r, EditURL: edit, DeleteURL: del})
	}
	return rows, nil
}
