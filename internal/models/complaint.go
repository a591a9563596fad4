package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusCompleted  ComplaintStatus = "completed"
	StatusEscalated  ComplaintStatus = "escalated"
)

// Valid reports whether s is a known lifecycle state.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusEscalated:
		return true
	}
	return false
}

// IssueCategory classifies the kind of civic issue being reported.
type IssueCategory string

const (
	CategoryPothole     IssueCategory = "pothole"
	CategoryGarbage     IssueCategory = "garbage"
	CategoryStreetlight IssueCategory = "streetlight"
	CategoryWaterLeak   IssueCategory = "water-leak"
	CategoryTraffic     IssueCategory = "traffic"
	CategoryVandalism   IssueCategory = "vandalism"
	CategoryOther       IssueCategory = "other"
)

// Valid reports whether c is a known issue category.
func (c IssueCategory) Valid() bool {
	switch c {
	case CategoryPothole, CategoryGarbage, CategoryStreetlight,
		CategoryWaterLeak, CategoryTraffic, CategoryVandalism, CategoryOther:
		return true
	}
	return false
}

// Severity is the reported or classified urgency of a complaint.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
	SeverityUrgent Severity = "urgent"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityUrgent:
		return true
	}
	return false
}

// Complaint is a citizen-submitted civic issue record stored in PostgreSQL.
// The embedded gorm.Model provides ID, CreatedAt, UpdatedAt, and DeletedAt.
// Status is mutated only through the status transition service; UpvoteCount
// is a denormalized counter kept consistent with the upvote ledger.
type Complaint struct {
	gorm.Model

	Title       string          `gorm:"size:200;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	IssueType   IssueCategory   `gorm:"size:50;not null;index" json:"issue_type"`
	Severity    Severity        `gorm:"size:20;not null" json:"severity_level"`
	Status      ComplaintStatus `gorm:"size:50;not null;index" json:"status"`

	ImageURL  string  `gorm:"size:300" json:"image_url"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	Address   string  `gorm:"size:255" json:"address"`
	City      string  `gorm:"size:150;index" json:"city"`
	Region    string  `gorm:"size:150" json:"region"`

	// Labels are free-form tags produced by the image classifier.
	Labels pq.StringArray `gorm:"type:text[]" json:"labels,omitempty"`

	UpvoteCount int `gorm:"not null;default:0" json:"upvote_count"`

	// EscalationDeadline is set once at creation and never decreases.
	EscalationDeadline time.Time `gorm:"index" json:"escalation_deadline"`

	// ReportRef points at the generated report, empty when generation failed.
	ReportRef string `gorm:"size:300" json:"report_ref"`

	// UserID is the id of the citizen who filed the complaint.
	UserID string `gorm:"type:text;not null;index" json:"user_id"`
}
