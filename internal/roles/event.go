package roles

import (
	"context"
	"log"
	"time"
)

// Kinds of RoleEvent.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventImported = "imported"
)

// RoleEvent describes a completed change to a role.
type RoleEvent struct {
	Kind        string
	Role        string
	DisplayName string
	// ActorID is zero for changes made by the importer.
	ActorID uint64
	UserIDs []uint64
	At      time.Time
}

// notify delivers ev to RoleChanged subscribers. Subscriber failures are
// logged and never undo the change.
func (m *Module) notify(ctx context.Context, ev RoleEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := m.RoleChanged.Do(ctx, ev); err != nil {
		log.Printf("roles: %s %s: %v", ev.Kind, ev.Role, err)
	}
}
