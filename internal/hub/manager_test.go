package hub_test

import (
	"testing"
	"time"

	"civicgo/backend/internal/hub"
	"civicgo/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestManager_RegisterUnregister(t *testing.T) {
	m := hub.NewManager()
	clientA := newMockClient("user_A")

	go m.Run()

	m.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	assert.Contains(t, m.Clients, "user_A")

	m.UnregisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	assert.NotContains(t, m.Clients, "user_A")
	assert.True(t, clientA.closed)
}

func TestManager_JoinAndBroadcast(t *testing.T) {
	m := hub.NewManager()
	clientA := newMockClient("user_A")
	clientB := newMockClient("user_B")

	go m.Run()

	m.RegisterCh <- clientA
	m.RegisterCh <- clientB
	m.JoinCh <- hub.Subscription{Client: clientA, ComplaintID: 7}
	m.JoinCh <- hub.Subscription{Client: clientB, ComplaintID: 7}
	time.Sleep(100 * time.Millisecond)

	event := models.StatusEvent{
		ComplaintID: 7,
		OldStatus:   models.StatusPending,
		NewStatus:   models.StatusInProgress,
	}
	m.EventCh <- event
	time.Sleep(100 * time.Millisecond)

	for _, c := range []*MockClient{clientA, clientB} {
		select {
		case got := <-c.RecvChannel:
			assert.Equal(t, models.StatusInProgress, got.NewStatus)
			assert.Equal(t, uint(7), got.ComplaintID)
		default:
			t.Errorf("client %s did not receive event", c.GetUserID())
		}
	}
}

func TestManager_EventsAreScopedToTheRoom(t *testing.T) {
	m := hub.NewManager()
	watcher := newMockClient("user_A")
	bystander := newMockClient("user_B")

	go m.Run()

	m.RegisterCh <- watcher
	m.RegisterCh <- bystander
	m.JoinCh <- hub.Subscription{Client: watcher, ComplaintID: 7}
	m.JoinCh <- hub.Subscription{Client: bystander, ComplaintID: 8}
	time.Sleep(100 * time.Millisecond)

	m.EventCh <- models.StatusEvent{ComplaintID: 7, NewStatus: models.StatusEscalated}
	time.Sleep(100 * time.Millisecond)

	select {
	case <-watcher.RecvChannel:
	default:
		t.Error("watcher did not receive event")
	}

	select {
	case <-bystander.RecvChannel:
		t.Error("bystander received event for a complaint it does not watch")
	default:
	}
}

func TestManager_LeaveStopsDelivery(t *testing.T) {
	m := hub.NewManager()
	clientA := newMockClient("user_A")

	go m.Run()

	m.RegisterCh <- clientA
	m.JoinCh <- hub.Subscription{Client: clientA, ComplaintID: 7}
	time.Sleep(100 * time.Millisecond)

	m.LeaveCh <- hub.Subscription{Client: clientA, ComplaintID: 7}
	time.Sleep(100 * time.Millisecond)

	m.EventCh <- models.StatusEvent{ComplaintID: 7, NewStatus: models.StatusCompleted}
	time.Sleep(100 * time.Millisecond)

	select {
	case <-clientA.RecvChannel:
		t.Error("client received event after leaving the room")
	default:
	}

	// Leaving a room does not disconnect the client.
	assert.Contains(t, m.Clients, "user_A")
}

func TestManager_SlowClientIsDropped(t *testing.T) {
	m := hub.NewManager()
	slow := newMockClient("user_slow")
	// Zero-capacity channel: the first delivery attempt already blocks.
	slow.RecvChannel = make(chan models.StatusEvent)

	go m.Run()

	m.RegisterCh <- slow
	m.JoinCh <- hub.Subscription{Client: slow, ComplaintID: 7}
	time.Sleep(100 * time.Millisecond)

	m.EventCh <- models.StatusEvent{ComplaintID: 7, NewStatus: models.StatusEscalated}
	time.Sleep(100 * time.Millisecond)

	assert.NotContains(t, m.Clients, "user_slow")
	assert.True(t, slow.closed)
}

func TestManager_UnregisterLeavesAllRooms(t *testing.T) {
	m := hub.NewManager()
	clientA := newMockClient("user_A")

	go m.Run()

	m.RegisterCh <- clientA
	m.JoinCh <- hub.Subscription{Client: clientA, ComplaintID: 1}
	m.JoinCh <- hub.Subscription{Client: clientA, ComplaintID: 2}
	time.Sleep(100 * time.Millisecond)

	m.UnregisterCh <- clientA
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, m.Watchers(1))
	assert.Equal(t, 0, m.Watchers(2))
}
