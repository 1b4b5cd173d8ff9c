package modules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/editorial-roles/internal/admin"
	"github.com/iliyamo/editorial-roles/internal/database"
	"github.com/iliyamo/editorial-roles/internal/repository"
)

type recorder struct {
	calls []string
}

func (r *recorder) Name() string { return "rec" }

func (r *recorder) Install(context.Context) error {
	r.calls = append(r.calls, "install")
	return nil
}

func (r *recorder) Init(context.Context, *admin.Router) error {
	r.calls = append(r.calls, "init")
	return nil
}

func (r *recorder) Upgrade(_ context.Context, prev string) error {
	r.calls = append(r.calls, "upgrade:"+prev)
	return nil
}

func newOptions(t *testing.T) *repository.OptionRepo {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return repository.NewOptionRepo(db)
}

func TestBootInstallsThenUpgrades(t *testing.T) {
	ctx := context.Background()
	opts := newOptions(t)
	rec := &recorder{}

	reg := NewRegistry(opts, "1.10.0")
	reg.Register(rec)
	require.NoError(t, reg.Boot(ctx, admin.NewRouter("/admin")))
	assert.Equal(t, []string{"install", "init"}, rec.calls)

	// Same version: init only.
	rec.calls = nil
	require.NoError(t, reg.Boot(ctx, admin.NewRouter("/admin")))
	assert.Equal(t, []string{"init"}, rec.calls)

	rec.calls = nil
	reg = NewRegistry(opts, "1.11.0")
	reg.Register(rec)
	require.NoError(t, reg.Boot(ctx, admin.NewRouter("/admin")))
	assert.Equal(t, []string{"upgrade:1.10.0", "init"}, rec.calls)

	v, err := opts.Get(ctx, "module_rec_version")
	require.NoError(t, err)
	assert.Equal(t, "1.11.0", v)
}

func TestBootSkipsDisabledModules(t *testing.T) {
	ctx := context.Background()
	opts := newOptions(t)
	require.NoError(t, opts.Set(ctx, "module_rec_enabled", "off"))
	rec := &recorder{}

	reg := NewRegistry(opts, "1.11.0")
	reg.Register(rec)
	require.NoError(t, reg.Boot(ctx, admin.NewRouter("/admin")))
	assert.Empty(t, rec.calls)
}
