package config

import "time"

const (
	// EscalationWindow is the SLA window: a complaint not resolved within it
	// is force-escalated by the scheduler.
	EscalationWindow = 72 * time.Hour

	// DefaultEscalationCron runs the overdue sweep at the top of every hour.
	// Cadence is a tunable, not a correctness requirement.
	DefaultEscalationCron = "0 * * * *"

	// CollaboratorTimeout bounds every call to an external collaborator
	// (classifier, geocoder, report generator, notifier).
	CollaboratorTimeout = 5 * time.Second

	// FeedLimit caps the community feed page size.
	FeedLimit = 50
)

// SeverityWeights feed the priority score shown on the authority dashboard.
var SeverityWeights = map[string]int{
	"low":    1,
	"medium": 2,
	"high":   3,
	"urgent": 4,
}
