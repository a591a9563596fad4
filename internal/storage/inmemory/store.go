// Package inmemory provides a mutex-guarded in-memory implementation of
// storage.Store for tests. Transactions serialize on a single lock, which
// matches the row-lock semantics the services rely on, but there is no
// rollback: a failed transaction callback may leave partial writes behind.
// Tests that exercise failure paths must account for that.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"

	"github.com/google/uuid"
)

// Store is the lock-acquiring front end handed to services under test.
type Store struct {
	mu   sync.Mutex
	data *state
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newState()}
}

// InTransaction holds the store lock for the duration of fn, serializing
// concurrent transactions exactly like row locks would.
func (s *Store) InTransaction(ctx context.Context, fn func(tx storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txStore{data: s.data})
}

func (s *Store) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.createComplaint(c)
}

func (s *Store) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.getComplaint(id)
}

func (s *Store) GetComplaintForUpdate(ctx context.Context, id uint) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.getComplaint(id)
}

func (s *Store) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.saveComplaint(c)
}

func (s *Store) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.listComplaints(func(models.Complaint) bool { return true }), nil
}

func (s *Store) ListComplaintsByUser(ctx context.Context, userID string) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.listComplaints(func(c models.Complaint) bool { return c.UserID == userID }), nil
}

func (s *Store) ListComplaintsByCity(ctx context.Context, city string) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.listComplaints(func(c models.Complaint) bool { return c.City == city }), nil
}

func (s *Store) ListFeed(ctx context.Context, limit int) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.listFeed(limit), nil
}

func (s *Store) ListOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.listOverdue(now), nil
}

func (s *Store) HardDeleteComplaint(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.hardDeleteComplaint(id)
}

func (s *Store) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.appendStatusHistory(entry)
}

func (s *Store) ListStatusHistory(ctx context.Context, complaintID uint) ([]models.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.listStatusHistory(complaintID), nil
}

func (s *Store) FindUpvote(ctx context.Context, userID string, complaintID uint) (*models.UpvoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.findUpvote(userID, complaintID)
}

func (s *Store) CreateUpvote(ctx context.Context, rec *models.UpvoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.createUpvote(rec)
}

func (s *Store) DeleteUpvote(ctx context.Context, userID string, complaintID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.deleteUpvote(userID, complaintID)
}

func (s *Store) AdjustUpvoteCount(ctx context.Context, complaintID uint, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.adjustUpvoteCount(complaintID, delta)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.getUserByID(id)
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.saveUser(user)
}

func (s *Store) FirstOrCreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.firstOrCreateUser(user)
}

// txStore is the view handed to transaction callbacks; the surrounding
// InTransaction already holds the lock.
type txStore struct {
	data *state
}

func (t *txStore) InTransaction(ctx context.Context, fn func(tx storage.Store) error) error {
	return fn(t)
}

func (t *txStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return t.data.createComplaint(c)
}

func (t *txStore) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	return t.data.getComplaint(id)
}

func (t *txStore) GetComplaintForUpdate(ctx context.Context, id uint) (*models.Complaint, error) {
	return t.data.getComplaint(id)
}

func (t *txStore) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	return t.data.saveComplaint(c)
}

func (t *txStore) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	return t.data.listComplaints(func(models.Complaint) bool { return true }), nil
}

func (t *txStore) ListComplaintsByUser(ctx context.Context, userID string) ([]models.Complaint, error) {
	return t.data.listComplaints(func(c models.Complaint) bool { return c.UserID == userID }), nil
}

func (t *txStore) ListComplaintsByCity(ctx context.Context, city string) ([]models.Complaint, error) {
	return t.data.listComplaints(func(c models.Complaint) bool { return c.City == city }), nil
}

func (t *txStore) ListFeed(ctx context.Context, limit int) ([]models.Complaint, error) {
	return t.data.listFeed(limit), nil
}

func (t *txStore) ListOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error) {
	return t.data.listOverdue(now), nil
}

func (t *txStore) HardDeleteComplaint(ctx context.Context, id uint) error {
	return t.data.hardDeleteComplaint(id)
}

func (t *txStore) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	return t.data.appendStatusHistory(entry)
}

func (t *txStore) ListStatusHistory(ctx context.Context, complaintID uint) ([]models.StatusHistoryEntry, error) {
	return t.data.listStatusHistory(complaintID), nil
}

func (t *txStore) FindUpvote(ctx context.Context, userID string, complaintID uint) (*models.UpvoteRecord, error) {
	return t.data.findUpvote(userID, complaintID)
}

func (t *txStore) CreateUpvote(ctx context.Context, rec *models.UpvoteRecord) error {
	return t.data.createUpvote(rec)
}

func (t *txStore) DeleteUpvote(ctx context.Context, userID string, complaintID uint) error {
	return t.data.deleteUpvote(userID, complaintID)
}

func (t *txStore) AdjustUpvoteCount(ctx context.Context, complaintID uint, delta int) (int, error) {
	return t.data.adjustUpvoteCount(complaintID, delta)
}

func (t *txStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return t.data.getUserByID(id)
}

func (t *txStore) SaveUser(ctx context.Context, user *models.User) error {
	return t.data.saveUser(user)
}

func (t *txStore) FirstOrCreateUser(ctx context.Context, user *models.User) error {
	return t.data.firstOrCreateUser(user)
}

// state holds the actual records. All methods assume the caller serialized
// access.
type state struct {
	complaints map[uint]models.Complaint
	history    []models.StatusHistoryEntry
	upvotes    map[upvoteKey]models.UpvoteRecord
	users      map[string]models.User

	nextComplaintID uint
	nextHistoryID   uint
	nextUpvoteID    uint
}

type upvoteKey struct {
	userID      string
	complaintID uint
}

func newState() *state {
	return &state{
		complaints:      make(map[uint]models.Complaint),
		upvotes:         make(map[upvoteKey]models.UpvoteRecord),
		users:           make(map[string]models.User),
		nextComplaintID: 1,
		nextHistoryID:   1,
		nextUpvoteID:    1,
	}
}

func (d *state) createComplaint(c *models.Complaint) error {
	c.ID = d.nextComplaintID
	d.nextComplaintID++
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	d.complaints[c.ID] = *c
	return nil
}

func (d *state) getComplaint(id uint) (*models.Complaint, error) {
	c, ok := d.complaints[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := c
	return &copied, nil
}

func (d *state) saveComplaint(c *models.Complaint) error {
	if _, ok := d.complaints[c.ID]; !ok {
		return storage.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	d.complaints[c.ID] = *c
	return nil
}

func (d *state) listComplaints(match func(models.Complaint) bool) []models.Complaint {
	var out []models.Complaint
	for _, c := range d.complaints {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (d *state) listFeed(limit int) []models.Complaint {
	open := d.listComplaints(func(c models.Complaint) bool {
		return c.Status == models.StatusPending || c.Status == models.StatusInProgress
	})
	sort.Slice(open, func(i, j int) bool {
		if open[i].UpvoteCount != open[j].UpvoteCount {
			return open[i].UpvoteCount > open[j].UpvoteCount
		}
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	if len(open) > limit {
		open = open[:limit]
	}
	return open
}

func (d *state) listOverdue(now time.Time) []models.Complaint {
	return d.listComplaints(func(c models.Complaint) bool {
		open := c.Status == models.StatusPending || c.Status == models.StatusInProgress
		return open && c.EscalationDeadline.Before(now)
	})
}

func (d *state) hardDeleteComplaint(id uint) error {
	if _, ok := d.complaints[id]; !ok {
		return storage.ErrNotFound
	}
	delete(d.complaints, id)
	for key := range d.upvotes {
		if key.complaintID == id {
			delete(d.upvotes, key)
		}
	}
	kept := d.history[:0]
	for _, entry := range d.history {
		if entry.ComplaintID != id {
			kept = append(kept, entry)
		}
	}
	d.history = kept
	return nil
}

func (d *state) appendStatusHistory(entry *models.StatusHistoryEntry) error {
	entry.ID = d.nextHistoryID
	d.nextHistoryID++
	entry.CreatedAt = time.Now()
	d.history = append(d.history, *entry)
	return nil
}

func (d *state) listStatusHistory(complaintID uint) []models.StatusHistoryEntry {
	var out []models.StatusHistoryEntry
	for _, entry := range d.history {
		if entry.ComplaintID == complaintID {
			out = append(out, entry)
		}
	}
	return out
}

func (d *state) findUpvote(userID string, complaintID uint) (*models.UpvoteRecord, error) {
	rec, ok := d.upvotes[upvoteKey{userID, complaintID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := rec
	return &copied, nil
}

func (d *state) createUpvote(rec *models.UpvoteRecord) error {
	key := upvoteKey{rec.UserID, rec.ComplaintID}
	if _, exists := d.upvotes[key]; exists {
		return storage.ErrDuplicate
	}
	rec.ID = d.nextUpvoteID
	d.nextUpvoteID++
	rec.CreatedAt = time.Now()
	d.upvotes[key] = *rec
	return nil
}

func (d *state) deleteUpvote(userID string, complaintID uint) error {
	key := upvoteKey{userID, complaintID}
	if _, exists := d.upvotes[key]; !exists {
		return storage.ErrNotFound
	}
	delete(d.upvotes, key)
	return nil
}

func (d *state) adjustUpvoteCount(complaintID uint, delta int) (int, error) {
	c, ok := d.complaints[complaintID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	c.UpvoteCount += delta
	if c.UpvoteCount < 0 {
		c.UpvoteCount = 0
	}
	d.complaints[complaintID] = c
	return c.UpvoteCount, nil
}

// UpvoteRows reports how many ledger rows exist for a complaint. Test-only
// helper for checking the counter invariant.
func (s *Store) UpvoteRows(complaintID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.data.upvotes {
		if key.complaintID == complaintID {
			n++
		}
	}
	return n
}

func (d *state) getUserByID(id string) (*models.User, error) {
	user, ok := d.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (d *state) saveUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	d.users[user.ID] = *user
	return nil
}

func (d *state) firstOrCreateUser(user *models.User) error {
	if existing, ok := d.users[user.ID]; ok {
		*user = existing
		return nil
	}
	return d.saveUser(user)
}
