// Package escalation guarantees that every complaint still open past its
// SLA deadline eventually becomes escalated, without manual intervention.
// The scheduler is just another caller of the status transition service, so
// it shares its validation and its serialization point instead of touching
// the database directly.
package escalation

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/status"
	"civicgo/backend/internal/storage"

	"github.com/robfig/cron/v3"
)

// Transitioner is the slice of the status service the scheduler needs.
type Transitioner interface {
	Transition(ctx context.Context, complaintID uint, requested models.ComplaintStatus, actor status.Actor, notes string) (*models.Complaint, error)
}

// Notifier tells the municipal channel a complaint blew its deadline.
type Notifier interface {
	NotifyEscalation(ctx context.Context, c *models.Complaint) error
}

// Scheduler sweeps for overdue complaints on a cron cadence.
type Scheduler struct {
	cron        *cron.Cron
	store       storage.Store
	transitions Transitioner
	notifier    Notifier
	spec        string

	// sweeping prevents overlapping sweeps if one runs past the cadence.
	sweeping atomic.Bool
}

// NewScheduler creates a scheduler. notifier may be nil.
func NewScheduler(store storage.Store, transitions Transitioner, notifier Notifier, spec string) *Scheduler {
	if spec == "" {
		spec = config.DefaultEscalationCron
	}
	return &Scheduler{
		cron:        cron.New(),
		store:       store,
		transitions: transitions,
		notifier:    notifier,
		spec:        spec,
	}
}

// Start registers the sweep with the cron runner and starts it.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("Escalation scheduler started (cron: %s)", s.spec)
	return nil
}

// Stop halts the cron runner. A sweep already in flight finishes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Escalation scheduler stopped")
}

// Sweep escalates every overdue complaint it finds and returns how many it
// escalated. Each complaint is handled independently: a failure on one is
// logged and the sweep moves on. An InvalidTransition from the status
// service means a manual transition won the race between the overdue query
// and the escalation attempt; that is expected, not an error.
func (s *Scheduler) Sweep(ctx context.Context) int {
	if !s.sweeping.CompareAndSwap(false, true) {
		log.Println("Escalation sweep already in progress, skipping")
		return 0
	}
	defer s.sweeping.Store(false)

	overdue, err := s.store.ListOverdueComplaints(ctx, time.Now())
	if err != nil {
		log.Printf("ERROR: Failed to query overdue complaints: %v", err)
		return 0
	}
	if len(overdue) == 0 {
		return 0
	}
	log.Printf("Found %d overdue complaints", len(overdue))

	escalated := 0
	for _, c := range overdue {
		updated, err := s.transitions.Transition(ctx, c.ID, models.StatusEscalated, status.System, "escalation deadline exceeded")
		if errors.Is(err, status.ErrInvalidTransition) || errors.Is(err, status.ErrNotFound) {
			// Lost the race to a manual transition or a hard delete.
			continue
		}
		if err != nil {
			log.Printf("ERROR: Failed to escalate complaint %d: %v", c.ID, err)
			continue
		}
		escalated++
		log.Printf("Complaint %d escalated", c.ID)

		if s.notifier != nil {
			notifyCtx, cancel := context.WithTimeout(ctx, config.CollaboratorTimeout)
			if err := s.notifier.NotifyEscalation(notifyCtx, updated); err != nil {
				log.Printf("ERROR: Escalation notification for complaint %d failed: %v", c.ID, err)
			}
			cancel()
		}
	}
	return escalated
}
