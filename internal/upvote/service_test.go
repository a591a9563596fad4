package upvote_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage/inmemory"
	"civicgo/backend/internal/upvote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedComplaint(t *testing.T, store *inmemory.Store) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		Title:              "Overflowing garbage bins",
		IssueType:          models.CategoryGarbage,
		Severity:           models.SeverityHigh,
		Status:             models.StatusPending,
		City:               "Springfield",
		UserID:             "citizen-1",
		EscalationDeadline: time.Now().Add(config.EscalationWindow),
	}
	require.NoError(t, store.CreateComplaint(context.Background(), c))
	return c
}

func TestToggle_AddThenRemove(t *testing.T) {
	store := inmemory.NewStore()
	svc := upvote.NewService(store)
	ctx := context.Background()

	c := seedComplaint(t, store)

	result, err := svc.Toggle(ctx, "user-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, upvote.StateAdded, result.State)
	assert.Equal(t, 1, result.Count)

	result, err = svc.Toggle(ctx, "user-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, upvote.StateRemoved, result.State)
	assert.Equal(t, 0, result.Count)

	// The ledger and the counter agree.
	assert.Equal(t, 0, store.UpvoteRows(c.ID))
	got, err := store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UpvoteCount)
}

func TestToggle_TwoUsersAreIndependent(t *testing.T) {
	store := inmemory.NewStore()
	svc := upvote.NewService(store)
	ctx := context.Background()

	c := seedComplaint(t, store)

	_, err := svc.Toggle(ctx, "user-1", c.ID)
	require.NoError(t, err)
	result, err := svc.Toggle(ctx, "user-2", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)

	// user-1 withdrawing does not touch user-2's vote.
	result, err = svc.Toggle(ctx, "user-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, upvote.StateRemoved, result.State)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 1, store.UpvoteRows(c.ID))
}

func TestToggle_UnknownComplaint(t *testing.T) {
	store := inmemory.NewStore()
	svc := upvote.NewService(store)

	_, err := svc.Toggle(context.Background(), "user-1", 404)
	assert.ErrorIs(t, err, upvote.ErrNotFound)
}

// N distinct users toggling concurrently must leave the counter exactly at
// N, with one ledger row per user.
func TestToggle_ConcurrentDistinctUsers(t *testing.T) {
	store := inmemory.NewStore()
	svc := upvote.NewService(store)
	ctx := context.Background()

	c := seedComplaint(t, store)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Toggle(ctx, fmt.Sprintf("user-%d", i), c.ID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.UpvoteCount)
	assert.Equal(t, n, store.UpvoteRows(c.ID))
}

// An even number of toggles from one user always lands back on zero, no
// matter how the pairs interleave with other users.
func TestToggle_EvenTogglesReturnToZero(t *testing.T) {
	store := inmemory.NewStore()
	svc := upvote.NewService(store)
	ctx := context.Background()

	c := seedComplaint(t, store)

	for i := 0; i < 4; i++ {
		_, err := svc.Toggle(ctx, "user-1", c.ID)
		require.NoError(t, err)
	}

	got, err := store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UpvoteCount)
	assert.Equal(t, 0, store.UpvoteRows(c.ID))
}
