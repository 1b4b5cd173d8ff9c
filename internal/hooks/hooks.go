// Package hooks is a small typed event bus. A Filter passes a value through
// its subscribers, each returning a possibly modified copy; an Action
// notifies every subscriber. Subscribers run in registration order.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FilterFunc transforms value. args carries read-only context for the call.
type FilterFunc[V, A any] func(ctx context.Context, value V, args A) (V, error)

// Filter is a named chain of FilterFuncs.
type Filter[V, A any] struct {
	name string
	mu   sync.RWMutex
	subs []FilterFunc[V, A]
}

func NewFilter[V, A any](name string) *Filter[V, A] {
	return &Filter[V, A]{name: name}
}

func (f *Filter[V, A]) Name() string { return f.name }

// Add subscribes fn after every previously added subscriber.
func (f *Filter[V, A]) Add(fn FilterFunc[V, A]) {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
}

// Len returns the number of subscribers.
func (f *Filter[V, A]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Apply threads value through every subscriber. The first error stops the
// chain and is returned wrapped with the filter name.
func (f *Filter[V, A]) Apply(ctx context.Context, value V, args A) (V, error) {
	f.mu.RLock()
	subs := make([]FilterFunc[V, A], len(f.subs))
	copy(subs, f.subs)
	f.mu.RUnlock()

	for _, fn := range subs {
		next, err := fn(ctx, value, args)
		if err != nil {
			return value, fmt.Errorf("filter %s: %w", f.name, err)
		}
		value = next
	}
	return value, nil
}

// ActionFunc reacts to an event.
type ActionFunc[A any] func(ctx context.Context, args A) error

// Action is a named list of ActionFuncs.
type Action[A any] struct {
	name string
	mu   sync.RWMutex
	subs []ActionFunc[A]
}

func NewAction[A any](name string) *Action[A] {
	return &Action[A]{name: name}
}

func (a *Action[A]) Name() string { return a.name }

// Add subscribes fn after every previously added subscriber.
func (a *Action[A]) Add(fn ActionFunc[A]) {
	a.mu.Lock()
	a.subs = append(a.subs, fn)
	a.mu.Unlock()
}

// Do runs every subscriber, even when an earlier one fails, and returns the
// joined errors.
func (a *Action[A]) Do(ctx context.Context, args A) error {
	a.mu.RLock()
	subs := make([]ActionFunc[A], len(a.subs))
	copy(subs, a.subs)
	a.mu.RUnlock()

	var errs []error
	for _, fn := range subs {
		if err := fn(ctx, args); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("action %s: %w", a.name, errors.Join(errs...))
}
