package status_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/status"
	"civicgo/backend/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []models.StatusEvent
}

func (b *recordingBroadcaster) PublishStatusEvent(event models.StatusEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBroadcaster) Events() []models.StatusEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.StatusEvent(nil), b.events...)
}

func seedComplaint(t *testing.T, store *inmemory.Store, s models.ComplaintStatus) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		Title:              "Broken streetlight on Elm St",
		IssueType:          models.CategoryStreetlight,
		Severity:           models.SeverityMedium,
		Status:             s,
		City:               "Springfield",
		UserID:             "citizen-1",
		EscalationDeadline: time.Now().Add(config.EscalationWindow),
	}
	require.NoError(t, store.CreateComplaint(context.Background(), c))
	return c
}

var officer = status.Actor{ID: "officer-1", Role: models.RoleOfficer}

func TestTransition_HappyPath(t *testing.T) {
	store := inmemory.NewStore()
	broadcaster := &recordingBroadcaster{}
	svc := status.NewService(store, broadcaster)
	ctx := context.Background()

	c := seedComplaint(t, store, models.StatusPending)

	updated, err := svc.Transition(ctx, c.ID, models.StatusInProgress, officer, "crew dispatched")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	updated, err = svc.Transition(ctx, c.ID, models.StatusCompleted, officer, "fixed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	history, err := svc.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusPending, history[0].OldStatus)
	assert.Equal(t, models.StatusInProgress, history[0].NewStatus)
	require.NotNil(t, history[0].ActorID)
	assert.Equal(t, "officer-1", *history[0].ActorID)
	assert.Equal(t, models.StatusCompleted, history[1].NewStatus)

	events := broadcaster.Events()
	require.Len(t, events, 2)
	assert.Equal(t, c.ID, events[0].ComplaintID)
	assert.Equal(t, models.StatusInProgress, events[0].NewStatus)
}

func TestTransition_RejectsInvalidEdges(t *testing.T) {
	store := inmemory.NewStore()
	svc := status.NewService(store, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		from models.ComplaintStatus
		to   models.ComplaintStatus
	}{
		{"backward to pending", models.StatusInProgress, models.StatusPending},
		{"pending straight to completed", models.StatusPending, models.StatusCompleted},
		{"completed is terminal", models.StatusCompleted, models.StatusInProgress},
		{"escalated cannot complete directly", models.StatusEscalated, models.StatusCompleted},
		{"self transition", models.StatusPending, models.StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := seedComplaint(t, store, tc.from)
			_, err := svc.Transition(ctx, c.ID, tc.to, officer, "")
			assert.ErrorIs(t, err, status.ErrInvalidTransition)

			// Rejected transitions leave no trace.
			history, err := svc.History(ctx, c.ID)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestTransition_RejectsUnknownStatus(t *testing.T) {
	store := inmemory.NewStore()
	svc := status.NewService(store, nil)

	c := seedComplaint(t, store, models.StatusPending)
	_, err := svc.Transition(context.Background(), c.ID, "archived", officer, "")
	assert.ErrorIs(t, err, status.ErrInvalidTransition)
}

func TestTransition_AdminBypassesGraph(t *testing.T) {
	store := inmemory.NewStore()
	svc := status.NewService(store, nil)
	ctx := context.Background()
	admin := status.Actor{ID: "admin-1", Role: models.RoleAdmin}

	c := seedComplaint(t, store, models.StatusCompleted)

	updated, err := svc.Transition(ctx, c.ID, models.StatusInProgress, admin, "reopened after complaint")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	history, err := svc.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusCompleted, history[0].OldStatus)
}

func TestTransition_CitizenForbidden(t *testing.T) {
	store := inmemory.NewStore()
	svc := status.NewService(store, nil)

	c := seedComplaint(t, store, models.StatusPending)
	citizen := status.Actor{ID: "citizen-1", Role: models.RoleCitizen}

	_, err := svc.Transition(context.Background(), c.ID, models.StatusInProgress, citizen, "")
	assert.ErrorIs(t, err, status.ErrUnauthorized)
}

func TestTransition_UnknownComplaint(t *testing.T) {
	store := inmemory.NewStore()
	svc := status.NewService(store, nil)

	_, err := svc.Transition(context.Background(), 999, models.StatusInProgress, officer, "")
	assert.ErrorIs(t, err, status.ErrNotFound)

	_, err = svc.History(context.Background(), 999)
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestTransition_SystemActorRecordedWithoutID(t *testing.T) {
	store := inmemory.NewStore()
	svc := status.NewService(store, nil)
	ctx := context.Background()

	c := seedComplaint(t, store, models.StatusPending)

	_, err := svc.Transition(ctx, c.ID, models.StatusEscalated, status.System, "deadline exceeded")
	require.NoError(t, err)

	history, err := svc.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].ActorID)
}

// Two actors race to move the same in_progress complaint, one to completed
// and one to escalated. Exactly one must win; the loser validates against
// the winner's committed status and gets ErrInvalidTransition.
func TestTransition_ConcurrentRequestsSerialize(t *testing.T) {
	store := inmemory.NewStore()
	svc := status.NewService(store, nil)
	ctx := context.Background()

	c := seedComplaint(t, store, models.StatusInProgress)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	targets := []models.ComplaintStatus{models.StatusCompleted, models.StatusEscalated}
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target models.ComplaintStatus) {
			defer wg.Done()
			_, errs[i] = svc.Transition(ctx, c.ID, target, officer, "")
		}(i, target)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, status.ErrInvalidTransition)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the racing transitions must lose")

	history, err := svc.History(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAllowed(t *testing.T) {
	assert.True(t, status.Allowed(models.StatusPending, models.StatusInProgress))
	assert.True(t, status.Allowed(models.StatusPending, models.StatusEscalated))
	assert.True(t, status.Allowed(models.StatusInProgress, models.StatusCompleted))
	assert.True(t, status.Allowed(models.StatusEscalated, models.StatusInProgress))
	assert.False(t, status.Allowed(models.StatusCompleted, models.StatusInProgress))
	assert.False(t, status.Allowed(models.StatusEscalated, models.StatusCompleted))
}
