package roles

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/phpserialize"

	"github.com/iliyamo/editorial-roles/internal/model"
	"github.com/iliyamo/editorial-roles/internal/repository"
)

// LegacyGroupTaxonomy is the taxonomy of pre-roles user groups.
const LegacyGroupTaxonomy = "pp_usergroup"

// LegacyGroup is a user group decoded from its taxonomy term. The term
// description holds a base64 encoded PHP serialized array; only user_ids
// is read from it.
type LegacyGroup struct {
	TermID  uint64
	Slug    string
	Name    string
	UserIDs []uint64
}

// DecodeLegacyGroup reads t into a LegacyGroup. A description that does not
// decode yields a group without users.
func DecodeLegacyGroup(t model.Term) LegacyGroup {
	g := LegacyGroup{TermID: t.ID, Slug: t.Slug, Name: t.Name}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(t.Description))
	if err != nil || len(raw) == 0 {
		return g
	}
	fields, err := phpserialize.UnmarshalAssociativeArray(raw)
	if err != nil {
		return g
	}
	g.UserIDs = phpIDs(fields["user_ids"])
	return g
}

// phpIDs flattens a decoded PHP array of ids, ordered by array key.
func phpIDs(v interface{}) []uint64 {
	var values []interface{}
	switch arr := v.(type) {
	case []interface{}:
		values = arr
	case map[interface{}]interface{}:
		keys := make([]interface{}, 0, len(arr))
		for k := range arr {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return phpKeyLess(keys[i], keys[j]) })
		for _, k := range keys {
			values = append(values, arr[k])
		}
	default:
		return nil
	}
	var out []uint64
	for _, v := range values {
		if id, ok := phpUint(v); ok && id > 0 {
			out = append(out, id)
		}
	}
	return out
}

func phpKeyLess(a, b interface{}) bool {
	ai, aok := phpUint(a)
	bi, bok := phpUint(b)
	if aok && bok {
		return ai < bi
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func phpUint(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case int64:
		return uint64(n), n >= 0
	case int:
		return uint64(n), n >= 0
	case float64:
		return uint64(n), n >= 0
	case string:
		id, err := strconv.ParseUint(strings.TrimSpace(n), 10, 64)
		return id, err == nil
	}
	return 0, false
}

// ImportReport lists what an import did.
type ImportReport struct {
	Created []string
	Skipped []string
	Deleted []uint64
}

// ImportLegacyGroups turns every legacy group whose slug is not a role yet
// into a role, enrolls the group's existing users and deletes the group.
// Groups whose role already exists are left in place.
func (m *Module) ImportLegacyGroups(ctx context.Context) (ImportReport, error) {
	var report ImportReport
	terms, err := m.deps.Terms.ListByTaxonomy(ctx, LegacyGroupTaxonomy)
	if err != nil {
		return report, fmt.Errorf("list legacy groups: %w", err)
	}
	for _, t := range terms {
		g := DecodeLegacyGroup(t)
		created, err := m.convertGroup(ctx, g)
		if err != nil {
			return report, fmt.Errorf("convert legacy group %s: %w", g.Slug, err)
		}
		if !created {
			report.Skipped = append(report.Skipped, g.Slug)
			continue
		}
		report.Created = append(report.Created, g.Slug)
		if err := m.deps.Terms.Delete(ctx, g.TermID, LegacyGroupTaxonomy); err != nil {
			return report, fmt.Errorf("delete legacy group %s: %w", g.Slug, err)
		}
		report.Deleted = append(report.Deleted, g.TermID)
	}
	return report, nil
}

func (m *Module) convertGroup(ctx context.Context, g LegacyGroup) (bool, error) {
	if g.Slug == "" {
		return false, nil
	}
	exists, err := m.deps.Roles.Exists(ctx, g.Slug)
	if err != nil || exists {
		return false, err
	}
	role := model.Role{Name: g.Slug, DisplayName: g.Name, Capabilities: map[string]bool{}}
	if err := m.deps.Roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrRoleExists) {
			return false, nil
		}
		return false, err
	}
	enrolled, err := m.enroll(ctx, g.Slug, g.UserIDs)
	if err != nil {
		// Drop the half-populated role so the next import retries the group.
		if derr := m.deps.Roles.Delete(context.WithoutCancel(ctx), g.Slug); derr != nil {
			err = errors.Join(err, fmt.Errorf("roll back role %s: %w", g.Slug, derr))
		}
		return false, err
	}
	m.notify(ctx, RoleEvent{Kind: EventImported, Role: g.Slug, DisplayName: g.Name, UserIDs: enrolled})
	return true, nil
}
