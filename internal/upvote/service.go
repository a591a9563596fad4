// Package upvote implements the per-user, per-complaint support toggle and
// keeps the denormalized counter on the complaint consistent with the
// ledger.
package upvote

import (
	"context"
	"errors"

	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"
)

var (
	// ErrNotFound means the referenced complaint does not exist.
	ErrNotFound = errors.New("upvote: complaint not found")
	// ErrConflict means a concurrent toggle from the same user won the race;
	// the caller should re-read state and retry.
	ErrConflict = errors.New("upvote: concurrent toggle conflict")
)

const (
	StateAdded   = "added"
	StateRemoved = "removed"
)

// Result reports which way the toggle went and the authoritative count.
type Result struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// Service toggles upvotes.
type Service struct {
	store storage.Store
}

// NewService constructs the upvote ledger service.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Toggle flips the user's upvote on a complaint. The ledger mutation and the
// counter adjustment run in one transaction; the complaint row lock taken
// first serializes toggles on the same complaint, and the unique ledger
// index catches whatever slips past it.
func (s *Service) Toggle(ctx context.Context, userID string, complaintID uint) (*Result, error) {
	var result *Result
	err := s.store.InTransaction(ctx, func(tx storage.Store) error {
		if _, err := tx.GetComplaintForUpdate(ctx, complaintID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		_, err := tx.FindUpvote(ctx, userID, complaintID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			rec := &models.UpvoteRecord{UserID: userID, ComplaintID: complaintID}
			if err := tx.CreateUpvote(ctx, rec); err != nil {
				if errors.Is(err, storage.ErrDuplicate) {
					return ErrConflict
				}
				return err
			}
			count, err := tx.AdjustUpvoteCount(ctx, complaintID, +1)
			if err != nil {
				return err
			}
			result = &Result{State: StateAdded, Count: count}
		case err != nil:
			return err
		default:
			if err := tx.DeleteUpvote(ctx, userID, complaintID); err != nil {
				return err
			}
			count, err := tx.AdjustUpvoteCount(ctx, complaintID, -1)
			if err != nil {
				return err
			}
			result = &Result{State: StateRemoved, Count: count}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
