package hub_test

import (
	"civicgo/backend/internal/models"
)

// MockClient is a channel-backed test double for hub.Client.
type MockClient struct {
	userID string
	// RecvChannel is what the hub sees as the client's send channel; tests
	// read delivered events from it.
	RecvChannel chan models.StatusEvent
	closed      bool
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.StatusEvent, 10),
	}
}

func (c *MockClient) GetUserID() string { return c.userID }

func (c *MockClient) GetSendChannel() chan<- models.StatusEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed = true
}
