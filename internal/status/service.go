// Package status is the sole authority for mutating a complaint's lifecycle
// state. Every transition, human-initiated or scheduler-driven, goes
// through Service.Transition, which validates the requested edge, writes the
// new status and a history entry atomically, and fans the change out to
// subscribers.
package status

import (
	"context"
	"errors"
	"log"

	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"
)

var (
	// ErrNotFound means the referenced complaint does not exist.
	ErrNotFound = errors.New("status: complaint not found")
	// ErrInvalidTransition means the requested status is not reachable from
	// the current one for this actor.
	ErrInvalidTransition = errors.New("status: invalid transition")
	// ErrUnauthorized means the actor's role may not change complaint status.
	ErrUnauthorized = errors.New("status: actor not allowed to change status")
)

// Actor identifies who is requesting a transition.
type Actor struct {
	ID   string
	Role models.Role
}

// System is the sentinel actor the escalation scheduler acts as. Its
// transitions are recorded with a nil actor id.
var System = Actor{Role: models.RoleSystem}

// transitionGraph holds the allowed forward edges. Escalated complaints can
// be reopened to in_progress; completed is terminal for everyone but admins.
var transitionGraph = map[models.ComplaintStatus][]models.ComplaintStatus{
	models.StatusPending:    {models.StatusInProgress, models.StatusEscalated},
	models.StatusInProgress: {models.StatusCompleted, models.StatusEscalated},
	models.StatusEscalated:  {models.StatusInProgress},
	models.StatusCompleted:  {},
}

// Allowed reports whether the edge from -> to exists in the transition graph.
func Allowed(from, to models.ComplaintStatus) bool {
	for _, next := range transitionGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Broadcaster delivers status events to whoever is watching the complaint.
// The production implementation publishes to Redis; the hub picks events up
// from there, so the transport can change without touching this package.
type Broadcaster interface {
	PublishStatusEvent(event models.StatusEvent) error
}

// Service validates and applies status transitions.
type Service struct {
	store       storage.Store
	broadcaster Broadcaster
}

// NewService constructs the transition service. broadcaster may be nil, in
// which case transitions are applied without fan-out (admin CLI).
func NewService(store storage.Store, broadcaster Broadcaster) *Service {
	return &Service{store: store, broadcaster: broadcaster}
}

// Transition moves a complaint to the requested status on behalf of actor.
//
// The read-validate-write sequence runs inside one transaction holding a row
// lock on the complaint, so concurrent transitions on the same complaint
// serialize: the loser validates against the winner's committed status.
// Admins bypass the graph entirely, which lets them also reopen completed
// complaints.
func (s *Service) Transition(ctx context.Context, complaintID uint, requested models.ComplaintStatus, actor Actor, notes string) (*models.Complaint, error) {
	if !requested.Valid() {
		return nil, ErrInvalidTransition
	}
	switch actor.Role {
	case models.RoleOfficer, models.RoleAdmin, models.RoleSystem:
	default:
		return nil, ErrUnauthorized
	}

	var (
		updated *models.Complaint
		event   models.StatusEvent
	)
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		c, err := tx.GetComplaintForUpdate(ctx, complaintID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if !Allowed(c.Status, requested) && actor.Role != models.RoleAdmin {
			return ErrInvalidTransition
		}

		old := c.Status
		c.Status = requested
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return err
		}

		entry := &models.StatusHistoryEntry{
			ComplaintID: c.ID,
			OldStatus:   old,
			NewStatus:   requested,
			Notes:       notes,
		}
		if actor.ID != "" {
			actorID := actor.ID
			entry.ActorID = &actorID
		}
		if err := tx.AppendStatusHistory(ctx, entry); err != nil {
			return err
		}

		event = models.StatusEvent{
			ComplaintID: c.ID,
			OldStatus:   old,
			NewStatus:   requested,
			Notes:       notes,
			UpdatedAt:   c.UpdatedAt,
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Fan-out is best-effort: the store already holds the truth.
	if s.broadcaster != nil {
		if err := s.broadcaster.PublishStatusEvent(event); err != nil {
			log.Printf("ERROR: Failed to publish status event for complaint %d: %v", event.ComplaintID, err)
		}
	}
	return updated, nil
}

// History returns the transition ledger for a complaint, oldest first.
func (s *Service) History(ctx context.Context, complaintID uint) ([]models.StatusHistoryEntry, error) {
	if _, err := s.store.GetComplaint(ctx, complaintID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.ListStatusHistory(ctx, complaintID)
}
