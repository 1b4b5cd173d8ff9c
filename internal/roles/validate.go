package roles

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/editorial-roles/internal/utils"
)

// FormErrors maps a form field to the message shown next to it. A later
// failing check replaces the message of an earlier one for the same field.
type FormErrors map[string]string

func (e FormErrors) Empty() bool { return len(e) == 0 }

// roleForm is the sanitized content of an add or edit submission.
type roleForm struct {
	Name        string
	DisplayName string
	UserIDs     []uint64
}

func sanitizeName(raw string) string {
	return utils.SanitizeTitle(utils.StripTags(strings.TrimSpace(raw)))
}

func sanitizeDisplayName(raw string) string {
	return strings.TrimSpace(utils.StripTags(strings.TrimSpace(raw)))
}

// parseUserIDs converts the submitted ids, dropping anything that is not a
// positive integer.
func parseUserIDs(raw []string) []uint64 {
	seen := make(map[uint64]bool, len(raw))
	out := make([]uint64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil || id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func readRoleForm(form url.Values, nameField string) roleForm {
	return roleForm{
		Name:        sanitizeName(form.Get(nameField)),
		DisplayName: sanitizeDisplayName(form.Get("display_name")),
		UserIDs:     parseUserIDs(form["users[]"]),
	}
}

func validateDisplayName(errs FormErrors, displayName string) {
	if displayName == "" {
		errs["display_name"] = "Please enter a display name for the role."
	}
	if len(displayName) > maxNameLength {
		errs["display_name"] = "Role's display name cannot exceed 40 characters. Please try a shorter name."
	}
}

// validateAdd checks a new role. The name must be present, unused and at
// most 40 bytes; the display name present and at most 40 bytes.
func (m *Module) validateAdd(ctx context.Context, f roleForm) (FormErrors, error) {
	errs := FormErrors{}
	if f.Name == "" {
		errs["name"] = "Please enter a name for the role."
	} else {
		exists, err := m.deps.Roles.Exists(ctx, f.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			errs["name"] = "Name already in use. Please choose another."
		}
	}
	if len(f.Name) > maxNameLength {
		errs["name"] = "Role name cannot exceed 40 characters. Please try a shorter name."
	}
	validateDisplayName(errs, f.DisplayName)
	return errs, nil
}

// validateEdit checks only the display name; the role name is immutable.
func validateEdit(f roleForm) FormErrors {
	errs := FormErrors{}
	validateDisplayName(errs, f.DisplayName)
	return errs
}
