// Package hub fans status events out to the clients currently watching a
// complaint. Topic membership is ephemeral: it lives only in this process
// and is lost on disconnect. Delivery is at-most-once: a client that is
// offline when an event fires resynchronizes with a full fetch.
package hub

import (
	"log"

	"civicgo/backend/internal/models"
)

// Subscription asks the manager to add or remove a client from a
// complaint's topic.
type Subscription struct {
	Client      Client
	ComplaintID uint
}

// Manager is the central dispatcher. All state is owned by the Run
// goroutine and mutated only through the channels.
type Manager struct {
	Clients map[string]Client

	// rooms maps complaint id -> user id -> client.
	rooms map[uint]map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	JoinCh       chan Subscription
	LeaveCh      chan Subscription

	// EventCh receives status events to fan out. The Redis listener feeds
	// it in production; tests feed it directly.
	EventCh chan models.StatusEvent
}

// NewManager creates an empty hub.
func NewManager() *Manager {
	return &Manager{
		Clients:      make(map[string]Client),
		rooms:        make(map[uint]map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		JoinCh:       make(chan Subscription),
		LeaveCh:      make(chan Subscription),
		EventCh:      make(chan models.StatusEvent, 64),
	}
}

// Run is the hub's main loop. Start it once, in its own goroutine.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.RegisterCh:
			m.Clients[client.GetUserID()] = client

		case client := <-m.UnregisterCh:
			m.removeClient(client)

		case sub := <-m.JoinCh:
			room, ok := m.rooms[sub.ComplaintID]
			if !ok {
				room = make(map[string]Client)
				m.rooms[sub.ComplaintID] = room
			}
			room[sub.Client.GetUserID()] = sub.Client

		case sub := <-m.LeaveCh:
			if room, ok := m.rooms[sub.ComplaintID]; ok {
				delete(room, sub.Client.GetUserID())
				if len(room) == 0 {
					delete(m.rooms, sub.ComplaintID)
				}
			}

		case event := <-m.EventCh:
			m.broadcast(event)
		}
	}
}

// broadcast pushes the event to every client in the complaint's room. A
// client whose send buffer is full is dropped rather than allowed to stall
// the hub.
func (m *Manager) broadcast(event models.StatusEvent) {
	room, ok := m.rooms[event.ComplaintID]
	if !ok {
		return
	}
	for userID, client := range room {
		select {
		case client.GetSendChannel() <- event:
		default:
			log.Printf("Dropping slow client %s from complaint %d", userID, event.ComplaintID)
			m.removeClient(client)
		}
	}
}

// removeClient drops the client from the registry and every room, then
// closes it.
func (m *Manager) removeClient(client Client) {
	userID := client.GetUserID()
	if _, ok := m.Clients[userID]; !ok {
		return
	}
	delete(m.Clients, userID)
	for complaintID, room := range m.rooms {
		delete(room, userID)
		if len(room) == 0 {
			delete(m.rooms, complaintID)
		}
	}
	client.Close()
}

// Watchers reports how many clients are in a complaint's room. Only safe to
// call from tests that know Run is idle.
func (m *Manager) Watchers(complaintID uint) int {
	return len(m.rooms[complaintID])
}
