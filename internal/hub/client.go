package hub

import "civicgo/backend/internal/models"

// Client is the interface for any connection watching complaints. It
// abstracts the underlying transport so the manager can treat websocket
// clients and test doubles uniformly.
type Client interface {
	// GetUserID returns the unique identifier for the principal behind the
	// connection.
	GetUserID() string

	// GetSendChannel returns the channel the manager pushes status events
	// intended for this client into. It is a send-only channel.
	GetSendChannel() chan<- models.StatusEvent

	// Run starts the client's read and write pumps.
	Run()

	// Close shuts down the client's connection and associated channels.
	Close()
}
