package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/editorial-roles/internal/config"
	"github.com/iliyamo/editorial-roles/internal/database"
	"github.com/iliyamo/editorial-roles/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return db
}

func TestRoleRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	roles, users := NewRoleRepo(db), NewUserRepo(db)

	admin, err := roles.Get(ctx, "administrator")
	require.NoError(t, err)
	assert.True(t, admin.Can("manage_options"))

	require.NoError(t, roles.Create(ctx, model.Role{Name: "editors", DisplayName: "Editors"}))
	assert.ErrorIs(t, roles.Create(ctx, model.Role{Name: "editors", DisplayName: "Again"}), ErrRoleExists)

	require.NoError(t, roles.UpdateDisplayName(ctx, "editors", "Editors"))
	require.NoError(t, roles.UpdateDisplayName(ctx, "editors", "Section Editors"))
	assert.ErrorIs(t, roles.UpdateDisplayName(ctx, "missing", "x"), ErrRoleNotFound)

	uid, err := users.Create(ctx, "e@example.com", "pw", "E", 4)
	require.NoError(t, err)
	require.NoError(t, users.AddRole(ctx, uid, "editors"))
	require.NoError(t, users.AddRole(ctx, uid, "editors"))

	list, err := roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "administrator", list[0].Name)
	assert.Equal(t, 0, list[0].UserCount)
	assert.Equal(t, "Section Editors", list[1].DisplayName)
	assert.Equal(t, 1, list[1].UserCount)

	require.NoError(t, roles.AddCapability(ctx, "editors", "edit_posts"))
	ok, err := users.HasCapability(ctx, uid, "edit_posts")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = users.HasCapability(ctx, uid, "manage_options")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, roles.Delete(ctx, "editors"))
	assert.ErrorIs(t, roles.Delete(ctx, "editors"), ErrRoleNotFound)
	_, err = roles.Get(ctx, "editors")
	assert.ErrorIs(t, err, ErrRoleNotFound)
	names, err := users.RoleNames(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(openTestDB(t))

	id, err := users.Create(ctx, " Writer@Example.com ", "pw", "Writer", 4)
	require.NoError(t, err)
	_, err = users.Create(ctx, "writer@example.com", "pw", "", 4)
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := users.GetByEmail(ctx, "WRITER@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.NotEqual(t, "pw", u.PasswordHash)

	_, err = users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, users.AddRole(ctx, id, "administrator"))
	members, err := users.ListByRole(ctx, "administrator")
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.NoError(t, users.RemoveRole(ctx, id, "administrator"))
	members, err = users.ListByRole(ctx, "administrator")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestOptionRepo(t *testing.T) {
	ctx := context.Background()
	opts := NewOptionRepo(openTestDB(t))

	_, err := opts.Get(ctx, "module_roles_version")
	assert.ErrorIs(t, err, ErrOptionNotFound)
	require.NoError(t, opts.Set(ctx, "module_roles_version", "1.10.0"))
	require.NoError(t, opts.Set(ctx, "module_roles_version", "1.11.0"))
	v, err := opts.Get(ctx, "module_roles_version")
	require.NoError(t, err)
	assert.Equal(t, "1.11.0", v)
}

func TestPostMetaRepoReplacesValues(t *testing.T) {
	ctx := context.Background()
	meta := NewPostMetaRepo(openTestDB(t), nil, config.MetaCacheConfig{Enabled: true, Prefix: "pm"})

	got, err := meta.Get(ctx, 5, "_psppno_pubunit")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, meta.Update(ctx, 5, "_psppno_pubunit", []string{"day", "week"}))
	got, err = meta.Get(ctx, 5, "_psppno_pubunit")
	require.NoError(t, err)
	assert.Equal(t, []string{"day", "week"}, got)

	require.NoError(t, meta.Update(ctx, 5, "_psppno_pubunit", []string{"hour"}))
	single, err := meta.GetSingle(ctx, 5, "_psppno_pubunit")
	require.NoError(t, err)
	assert.Equal(t, "hour", single)

	other, err := meta.GetSingle(ctx, 6, "_psppno_pubunit")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTermRepo(t *testing.T) {
	ctx := context.Background()
	terms := NewTermRepo(openTestDB(t))

	a, err := terms.Create(ctx, model.Term{Taxonomy: "pp_usergroup", Slug: "a", Name: "A"})
	require.NoError(t, err)
	_, err = terms.Create(ctx, model.Term{Taxonomy: "category", Slug: "b", Name: "B"})
	require.NoError(t, err)

	list, err := terms.ListByTaxonomy(ctx, "pp_usergroup")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a, list[0].ID)

	require.NoError(t, terms.Delete(ctx, a, "pp_usergroup"))
	list, err = terms.ListByTaxonomy(ctx, "pp_usergroup")
	require.NoError(t, err)
	assert.Empty(t, list)
}
