// Package modules drives the lifecycle of admin modules. On boot each
// enabled module is installed on first run or upgraded when the stored
// version differs from the running one, and is then initialised.
package modules

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/editorial-roles/internal/admin"
	"github.com/iliyamo/editorial-roles/internal/repository"
)

// Module is a unit with its own stored version.
type Module interface {
	Name() string
	Install(ctx context.Context) error
	Upgrade(ctx context.Context, previous string) error
	Init(ctx context.Context, r *admin.Router) error
}

// OptionStore persists module state.
type OptionStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}

// Registry boots registered modules in registration order.
type Registry struct {
	opts    OptionStore
	version string
	mods    []Module
}

func NewRegistry(opts OptionStore, version string) *Registry {
	return &Registry{opts: opts, version: version}
}

// Register appends m to the boot list.
func (r *Registry) Register(m Module) { r.mods = append(r.mods, m) }

func versionOption(name string) string { return "module_" + name + "_version" }
func enabledOption(name string) string { return "module_" + name + "_enabled" }

// Enabled reports whether the module called name is switched on. Modules
// are on until an "off" value is stored.
func (r *Registry) Enabled(ctx context.Context, name string) (bool, error) {
	v, err := r.opts.Get(ctx, enabledOption(name))
	if errors.Is(err, repository.ErrOptionNotFound) {
		return true, r.opts.Set(ctx, enabledOption(name), "on")
	}
	if err != nil {
		return false, err
	}
	return v != "off", nil
}

// Boot runs install or upgrade where needed and initialises every enabled
// module against router.
func (r *Registry) Boot(ctx context.Context, router *admin.Router) error {
	for _, m := range r.mods {
		name := m.Name()
		on, err := r.Enabled(ctx, name)
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		if !on {
			log.Printf("module %s disabled", name)
			continue
		}
		if err := r.migrate(ctx, m); err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		if err := m.Init(ctx, router); err != nil {
			return fmt.Errorf("module %s init: %w", name, err)
		}
	}
	return nil
}

func (r *Registry) migrate(ctx context.Context, m Module) error {
	key := versionOption(m.Name())
	prev, err := r.opts.Get(ctx, key)
	switch {
	case errors.Is(err, repository.ErrOptionNotFound):
		log.Printf("module %s: install %s", m.Name(), r.version)
		if err := m.Install(ctx); err != nil {
			return err
		}
	case err != nil:
		return err
	case prev == r.version:
		return nil
	default:
		log.Printf("module %s: upgrade %s -> %s", m.Name(), prev, r.version)
		if err := m.Upgrade(ctx, prev); err != nil {
			return err
		}
	}
	return r.opts.Set(ctx, key, r.version)
}
