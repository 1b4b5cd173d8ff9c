package roles

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/editorial-roles/internal/admin"
	"github.com/iliyamo/editorial-roles/internal/model"
	"github.com/iliyamo/editorial-roles/internal/repository"
)

var (
	errNonceFailed        = errors.New("nonce-failed")
	errInvalidPermissions = errors.New("invalid-permissions")
)

const requestTimeout = 5 * time.Second

// authorize checks the nonce and the manage capability of the current user.
func (m *Module) authorize(c echo.Context, nonce string) (uint64, error) {
	uid, err := m.deps.UserID(c)
	if err != nil {
		return 0, errInvalidPermissions
	}
	if err := m.deps.Nonces.Verify(nonce, uid, nonceAction); err != nil {
		return 0, errNonceFailed
	}
	return m.canManage(c, uid)
}

// canManage returns uid when that user holds the manage capability.
func (m *Module) canManage(c echo.Context, uid uint64) (uint64, error) {
	ok, err := m.deps.Users.HasCapability(c.Request().Context(), uid, m.capManageRoles)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errInvalidPermissions
	}
	return uid, nil
}

// die ends the request with a plain-text message. Authorization failures
// map to 403, anything else to 500.
func (m *Module) die(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errNonceFailed), errors.Is(err, errInvalidPermissions):
		return c.String(http.StatusForbidden, m.info.Messages[err.Error()])
	default:
		c.Logger().Errorf("roles: %v", err)
		return c.String(http.StatusInternalServerError, "Error processing the role request.")
	}
}

func (m *Module) redirect(c echo.Context, uid uint64, args map[string]string) error {
	to, err := m.link(uid, args)
	if err != nil {
		return m.die(c, err)
	}
	return c.Redirect(http.StatusFound, to)
}

// HandleAddRole creates a role from the add form and enrolls the selected
// users.
func (m *Module) HandleAddRole(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil || !form.Has("submit") {
		return admin.ErrNotHandled
	}
	uid, err := m.authorize(c, form.Get("_wpnonce"))
	if err != nil {
		return m.die(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	f := readRoleForm(form, "name")
	errs, err := m.validateAdd(ctx, f)
	if err != nil {
		return m.die(c, err)
	}
	if !errs.Empty() {
		return m.render(c, http.StatusUnprocessableEntity, formState{Action: actionAdd, Form: f, Errors: errs})
	}

	role := model.Role{Name: f.Name, DisplayName: f.DisplayName, Capabilities: map[string]bool{}}
	if err := m.deps.Roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrRoleExists) {
			errs["name"] = "Name already in use. Please choose another."
			return m.render(c, http.StatusUnprocessableEntity, formState{Action: actionAdd, Form: f, Errors: errs})
		}
		return m.die(c, err)
	}
	enrolled, err := m.enroll(ctx, role.Name, f.UserIDs)
	if err != nil {
		return m.die(c, err)
	}
	m.notify(ctx, RoleEvent{Kind: EventCreated, Role: role.Name, DisplayName: role.DisplayName, ActorID: uid, UserIDs: enrolled})

	return m.redirect(c, uid, map[string]string{
		"action":  actionEdit,
		"role-id": role.Name,
		"message": "role-added",
	})
}

// HandleEditRole renames a role and replaces its member list with the
// selected users.
func (m *Module) HandleEditRole(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil || !form.Has("submit") {
		return admin.ErrNotHandled
	}
	uid, err := m.authorize(c, form.Get("_wpnonce"))
	if err != nil {
		return m.die(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	f := readRoleForm(form, "role-id")
	if errs := validateEdit(f); !errs.Empty() {
		return m.render(c, http.StatusUnprocessableEntity, formState{Action: actionEdit, Form: f, Errors: errs})
	}

	if err := m.deps.Roles.UpdateDisplayName(ctx, f.Name, f.DisplayName); err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return c.String(http.StatusNotFound, "Role not found. Can't edit.")
		}
		return m.die(c, err)
	}

	members, err := m.deps.Users.ListByRole(ctx, f.Name)
	if err != nil {
		return m.die(c, err)
	}
	for _, u := range members {
		if slices.Contains(f.UserIDs, u.ID) {
			continue
		}
		if err := m.deps.Users.RemoveRole(ctx, u.ID, f.Name); err != nil {
			return m.die(c, err)
		}
	}
	enrolled, err := m.enroll(ctx, f.Name, f.UserIDs)
	if err != nil {
		return m.die(c, err)
	}
	m.notify(ctx, RoleEvent{Kind: EventUpdated, Role: f.Name, DisplayName: f.DisplayName, ActorID: uid, UserIDs: enrolled})

	return m.redirect(c, uid, map[string]string{
		"action":  actionEdit,
		"role-id": f.Name,
		"message": "role-updated",
	})
}

// HandleDeleteRole removes the role named by role-id and all of its
// memberships. There is no undo.
func (m *Module) HandleDeleteRole(c echo.Context) error {
	uid, err := m.authorize(c, c.QueryParam("nonce"))
	if err != nil {
		return m.die(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	name := sanitizeName(c.QueryParam("role-id"))
	if err := m.deps.Roles.Delete(ctx, name); err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return c.String(http.StatusNotFound, "Role not found. Can't delete.")
		}
		return m.die(c, err)
	}
	m.notify(ctx, RoleEvent{Kind: EventDeleted, Role: name, ActorID: uid})

	return m.redirect(c, uid, map[string]string{
		"action":  actionAdd,
		"message": "role-deleted",
	})
}

// enroll adds role to every existing user in ids and returns the ids that
// were found.
func (m *Module) enroll(ctx context.Context, role string, ids []uint64) ([]uint64, error) {
	var enrolled []uint64
	for _, id := range ids {
		if _, err := m.deps.Users.GetByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			return enrolled, err
		}
		if err := m.deps.Users.AddRole(ctx, id, role); err != nil {
			return enrolled, err
		}
		enrolled = append(enrolled, id)
	}
	return enrolled, nil
}
