// Package analysis scores complaints for the authority dashboard's triage
// queue. The score weighs severity, community upvotes, and whether the
// complaint has blown past its escalation deadline.
package analysis

import (
	"time"

	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
)

// Priority returns the triage score for a complaint. Higher means more
// urgent. Closed complaints always score zero.
func Priority(c *models.Complaint, now time.Time) int {
	if c.Status == models.StatusCompleted {
		return 0
	}

	score := config.SeverityWeights[string(c.Severity)]*10 + c.UpvoteCount

	if c.Status == models.StatusEscalated {
		score += 50
	} else if now.After(c.EscalationDeadline) {
		// Overdue but not yet swept by the scheduler.
		score += 25
	}
	return score
}
