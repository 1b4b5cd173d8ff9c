package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/editorial-roles/internal/queue"
	"github.com/iliyamo/editorial-roles/internal/roles"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestAuditPublisherLogsFailures(t *testing.T) {
	buf := captureLog(t)
	var wg sync.WaitGroup
	sub := auditPublisher(func(context.Context, queue.RoleAuditEvent) error {
		return errors.New("broker unreachable")
	}, &wg)

	err := sub(context.Background(), roles.RoleEvent{Kind: roles.EventDeleted, Role: "interns", ActorID: 1})
	require.NoError(t, err)
	wg.Wait()

	assert.Contains(t, buf.String(), "audit publish deleted interns: broker unreachable")
}

func TestAuditPublisherSendsEvent(t *testing.T) {
	buf := captureLog(t)
	var (
		wg  sync.WaitGroup
		got queue.RoleAuditEvent
	)
	sub := auditPublisher(func(_ context.Context, ev queue.RoleAuditEvent) error {
		got = ev
		return nil
	}, &wg)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sub(context.Background(), roles.RoleEvent{
		Kind: roles.EventCreated, Role: "reviewers", DisplayName: "Reviewers", ActorID: 3, UserIDs: []uint64{3, 4}, At: at,
	}))
	wg.Wait()

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "reviewers", got.Role)
	assert.Equal(t, []uint64{3, 4}, got.UserIDs)
	assert.Equal(t, "2024-05-01T10:00:00Z", got.OccurredAt)
	assert.Empty(t, buf.String())
}
