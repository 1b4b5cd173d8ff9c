// Package queue defines message payloads exchanged over the message broker
// and the consumer that writes them to the audit log.
package queue

import (
	"fmt"
	"strconv"
	"strings"
)

// RoleAuditQueue is the durable queue role changes are published to.
const RoleAuditQueue = "roles.changed"

// RoleAuditEvent is published after a role is created, updated, deleted or
// imported.  It carries enough to audit the change without reading the
// primary database.
type RoleAuditEvent struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Role        string   `json:"role"`
	DisplayName string   `json:"display_name,omitempty"`
	ActorID     uint64   `json:"actor_id"`
	UserIDs     []uint64 `json:"user_ids,omitempty"`
	OccurredAt  string   `json:"occurred_at"`
}

// Line renders ev as one audit log line.
func (ev RoleAuditEvent) Line() string {
	ids := make([]string, len(ev.UserIDs))
	for i, id := range ev.UserIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	actor := "importer"
	if ev.ActorID != 0 {
		actor = "user:" + strconv.FormatUint(ev.ActorID, 10)
	}
	return fmt.Sprintf("[%s] Role %s | id=%s | role=%q | display_name=%q | actor=%s | users=[%s]\n",
		ev.OccurredAt, ev.Kind, ev.ID, ev.Role, ev.DisplayName, actor, strings.Join(ids, ","))
}
