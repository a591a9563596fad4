package hub

import (
	"encoding/json"
	"log"

	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"
)

// StartEventListener subscribes to the Redis status channel and feeds
// every event into the hub's fan-out loop. Events published by any
// backend instance reach the clients connected to this one.
func (m *Manager) StartEventListener(s *storage.Service) {
	go func() {
		pubsub := s.SubscribeStatusEvents()
		defer pubsub.Close()

		ch := pubsub.Channel()

		for msg := range ch {
			var event models.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Error unmarshalling Redis message: %v", err)
				continue
			}
			m.EventCh <- event
		}
	}()
}
