package models

import "gorm.io/gorm"

// StatusHistoryEntry is one row of the append-only status transition ledger.
// An entry is written for every accepted transition, including the ones the
// escalation scheduler drives. Entries are never updated or deleted.
type StatusHistoryEntry struct {
	gorm.Model

	ComplaintID uint            `gorm:"not null;index" json:"complaint_id"`
	OldStatus   ComplaintStatus `gorm:"size:50;not null" json:"old_status"`
	NewStatus   ComplaintStatus `gorm:"size:50;not null" json:"new_status"`

	// ActorID is nil for scheduler-driven transitions.
	ActorID *string `gorm:"type:text;index" json:"actor_id,omitempty"`
	Notes   string  `gorm:"type:text" json:"notes"`
}
