// Package storage owns the durable state of the platform: the complaint
// store, the append-only status history ledger, and the upvote ledger, all
// in PostgreSQL, plus the Redis channel status events are published on.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"civicgo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("storage: duplicate record")
)

// Store is the transactional interface the services mutate state through.
// InTransaction hands the callback a Store bound to the transaction; all
// reads and writes inside the callback commit or roll back as one unit.
type Store interface {
	InTransaction(ctx context.Context, fn func(tx Store) error) error

	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	// GetComplaintForUpdate locks the complaint row for the duration of the
	// surrounding transaction. It is the single serialization point for
	// status and counter mutations on a complaint.
	GetComplaintForUpdate(ctx context.Context, id uint) (*models.Complaint, error)
	SaveComplaint(ctx context.Context, c *models.Complaint) error
	ListComplaints(ctx context.Context) ([]models.Complaint, error)
	ListComplaintsByUser(ctx context.Context, userID string) ([]models.Complaint, error)
	ListComplaintsByCity(ctx context.Context, city string) ([]models.Complaint, error)
	ListFeed(ctx context.Context, limit int) ([]models.Complaint, error)
	// ListOverdueComplaints returns complaints still pending or in progress
	// whose escalation deadline has passed.
	ListOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error)
	// HardDeleteComplaint physically removes a complaint and its ledgers.
	// Administrative path only; it is not audited.
	HardDeleteComplaint(ctx context.Context, id uint) error

	AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	ListStatusHistory(ctx context.Context, complaintID uint) ([]models.StatusHistoryEntry, error)

	FindUpvote(ctx context.Context, userID string, complaintID uint) (*models.UpvoteRecord, error)
	CreateUpvote(ctx context.Context, rec *models.UpvoteRecord) error
	DeleteUpvote(ctx context.Context, userID string, complaintID uint) error
	// AdjustUpvoteCount shifts the denormalized counter by delta, floored at
	// zero, and returns the resulting count.
	AdjustUpvoteCount(ctx context.Context, complaintID uint, delta int) (int, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	FirstOrCreateUser(ctx context.Context, user *models.User) error
}

// statusEventsChannel is the Redis pub/sub channel status events travel on.
const statusEventsChannel = "complaint:status"

// Service implements Store on PostgreSQL via GORM and publishes status
// events through Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService constructs the production storage backend.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// InTransaction runs fn inside a database transaction. The Store passed to
// fn shares the Redis handle but routes all SQL through the transaction.
func (s *Service) InTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx, Redis: s.Redis, Ctx: s.Ctx})
	})
}

func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return s.DB.WithContext(ctx).Create(c).Error
}

func (s *Service) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) GetComplaintForUpdate(ctx context.Context, id uint) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	return s.DB.WithContext(ctx).Save(c).Error
}

func (s *Service) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.DB.WithContext(ctx).Order("created_at desc").Find(&complaints).Error
	return complaints, err
}

func (s *Service) ListComplaintsByUser(ctx context.Context, userID string) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&complaints).Error
	return complaints, err
}

func (s *Service) ListComplaintsByCity(ctx context.Context, city string) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.DB.WithContext(ctx).
		Where("city = ?", city).
		Order("created_at desc").
		Find(&complaints).Error
	return complaints, err
}

// ListFeed returns open complaints ordered by community support.
func (s *Service) ListFeed(ctx context.Context, limit int) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.DB.WithContext(ctx).
		Where("status IN ?", []models.ComplaintStatus{models.StatusPending, models.StatusInProgress}).
		Order("upvote_count desc").
		Order("created_at desc").
		Limit(limit).
		Find(&complaints).Error
	return complaints, err
}

func (s *Service) ListOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.DB.WithContext(ctx).
		Where("status IN ?", []models.ComplaintStatus{models.StatusPending, models.StatusInProgress}).
		Where("escalation_deadline < ?", now).
		Find(&complaints).Error
	return complaints, err
}

func (s *Service) HardDeleteComplaint(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("complaint_id = ?", id).Unscoped().Delete(&models.UpvoteRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("complaint_id = ?", id).Unscoped().Delete(&models.StatusHistoryEntry{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&models.Complaint{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Service) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	return s.DB.WithContext(ctx).Create(entry).Error
}

func (s *Service) ListStatusHistory(ctx context.Context, complaintID uint) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	err := s.DB.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("created_at asc").
		Find(&entries).Error
	return entries, err
}

func (s *Service) FindUpvote(ctx context.Context, userID string, complaintID uint) (*models.UpvoteRecord, error) {
	var rec models.UpvoteRecord
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND complaint_id = ?", userID, complaintID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) CreateUpvote(ctx context.Context, rec *models.UpvoteRecord) error {
	err := s.DB.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *Service) DeleteUpvote(ctx context.Context, userID string, complaintID uint) error {
	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND complaint_id = ?", userID, complaintID).
		Unscoped().
		Delete(&models.UpvoteRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) AdjustUpvoteCount(ctx context.Context, complaintID uint, delta int) (int, error) {
	err := s.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ?", complaintID).
		UpdateColumn("upvote_count", gorm.Expr("GREATEST(upvote_count + ?, 0)", delta)).Error
	if err != nil {
		return 0, err
	}

	var count int
	err = s.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ?", complaintID).
		Select("upvote_count").
		Scan(&count).Error
	return count, err
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

func (s *Service) FirstOrCreateUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).
		Where("id = ?", user.ID).
		FirstOrCreate(user).Error
}

// PublishStatusEvent pushes a status event onto the Redis channel. The
// status transition service calls this after its transaction commits; the
// hub on every instance picks it up and fans it out to websocket clients.
func (s *Service) PublishStatusEvent(event models.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, statusEventsChannel, payload).Err()
}

// SubscribeStatusEvents subscribes to the status event channel.
func (s *Service) SubscribeStatusEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, statusEventsChannel)
}
