package models

import "time"

// StatusEvent is the payload fanned out to clients watching a complaint.
// Delivery is best-effort; the complaint store stays the source of truth.
type StatusEvent struct {
	ComplaintID uint            `json:"complaint_id"`
	OldStatus   ComplaintStatus `json:"old_status"`
	NewStatus   ComplaintStatus `json:"new_status"`
	Notes       string          `json:"notes,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Actions a websocket client may send.
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

// ClientCommand is what a websocket client sends to manage its topic
// membership.
type ClientCommand struct {
	Action      string `json:"action"`
	ComplaintID uint   `json:"complaint_id"`
}
