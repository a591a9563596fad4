// Package intake creates complaints from citizen submissions, folding in
// whatever the external collaborators (classifier, geocoder, report
// generator, notifier) can contribute within their timeout. Collaborator
// failures degrade the record to defaults; they never block creation.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"

	"github.com/lib/pq"
)

// ErrUnauthenticated means the submission carries no principal id.
var ErrUnauthenticated = errors.New("intake: missing actor id")

// ValidationError reports which mandatory fields are missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("intake: missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Classification is what the image classifier returns.
type Classification struct {
	Category   models.IssueCategory
	Severity   models.Severity
	Labels     []string
	Confidence float64
}

// Location is what the reverse geocoder returns.
type Location struct {
	Address string
	City    string
	Region  string
}

// Classifier suggests a category and severity for an uploaded image.
type Classifier interface {
	Classify(ctx context.Context, imageURL string) (*Classification, error)
}

// Geocoder resolves coordinates into a human-readable location.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*Location, error)
}

// ReportGenerator drafts a report document for a complaint and returns a
// reference to it.
type ReportGenerator interface {
	Generate(ctx context.Context, c *models.Complaint) (string, error)
}

// Notifier tells the municipal channel a complaint was filed.
type Notifier interface {
	NotifyNewComplaint(ctx context.Context, c *models.Complaint) error
}

// SubmitRequest is the validated, strongly-typed form of a submission.
type SubmitRequest struct {
	Title       string
	Description string
	IssueType   models.IssueCategory
	Severity    models.Severity
	Latitude    *float64
	Longitude   *float64
	Address     string
	PlaceName   string
	Region      string
	ImageURL    string
}

// Service builds complaints. Any collaborator may be nil; the corresponding
// enrichment is simply skipped.
type Service struct {
	store      storage.Store
	classifier Classifier
	geocoder   Geocoder
	reports    ReportGenerator
	notifier   Notifier
}

// NewService constructs the intake service.
func NewService(store storage.Store, classifier Classifier, geocoder Geocoder, reports ReportGenerator, notifier Notifier) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		geocoder:   geocoder,
		reports:    reports,
		notifier:   notifier,
	}
}

// Submit validates the request, enriches it via the collaborators, and
// persists a pending complaint with its escalation deadline set to
// now + the SLA window.
func (s *Service) Submit(ctx context.Context, req SubmitRequest, actorID string) (*models.Complaint, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}

	var missing []string
	if req.Title == "" {
		missing = append(missing, "title")
	}
	if req.Latitude == nil {
		missing = append(missing, "latitude")
	}
	if req.Longitude == nil {
		missing = append(missing, "longitude")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	category := req.IssueType
	severity := req.Severity
	var labels []string

	if req.ImageURL != "" && s.classifier != nil && (category == "" || severity == "") {
		classifyCtx, cancel := context.WithTimeout(ctx, config.CollaboratorTimeout)
		cls, err := s.classifier.Classify(classifyCtx, req.ImageURL)
		cancel()
		if err != nil {
			log.Printf("ERROR: Image classification failed: %v", err)
		} else {
			if category == "" && cls.Category.Valid() {
				category = cls.Category
			}
			if severity == "" && cls.Severity.Valid() {
				severity = cls.Severity
			}
			labels = cls.Labels
		}
	}
	if category == "" || !category.Valid() {
		category = models.CategoryOther
	}
	if severity == "" || !severity.Valid() {
		severity = models.SeverityMedium
	}

	address, city, region := s.resolveLocation(ctx, req)

	now := time.Now()
	complaint := &models.Complaint{
		Title:              req.Title,
		Description:        req.Description,
		IssueType:          category,
		Severity:           severity,
		Status:             models.StatusPending,
		ImageURL:           req.ImageURL,
		Latitude:           *req.Latitude,
		Longitude:          *req.Longitude,
		Address:            address,
		City:               city,
		Region:             region,
		Labels:             pq.StringArray(labels),
		EscalationDeadline: now.Add(config.EscalationWindow),
		UserID:             actorID,
	}

	if s.reports != nil {
		reportCtx, cancel := context.WithTimeout(ctx, config.CollaboratorTimeout)
		ref, err := s.reports.Generate(reportCtx, complaint)
		cancel()
		if err != nil {
			log.Printf("ERROR: Report generation failed: %v", err)
		} else {
			complaint.ReportRef = ref
		}
	}

	if err := s.store.CreateComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, config.CollaboratorTimeout)
		if err := s.notifier.NotifyNewComplaint(notifyCtx, complaint); err != nil {
			log.Printf("ERROR: New complaint notification failed: %v", err)
		}
		cancel()
	}
	return complaint, nil
}

// resolveLocation fills in address/city/region from the geocoder, falling
// back to caller-supplied fields, then to "Unknown".
func (s *Service) resolveLocation(ctx context.Context, req SubmitRequest) (address, city, region string) {
	address = req.Address
	region = req.Region

	if s.geocoder != nil {
		geoCtx, cancel := context.WithTimeout(ctx, config.CollaboratorTimeout)
		loc, err := s.geocoder.ReverseGeocode(geoCtx, *req.Latitude, *req.Longitude)
		cancel()
		if err != nil {
			log.Printf("ERROR: Reverse geocoding failed: %v", err)
		} else {
			if address == "" {
				address = loc.Address
			}
			city = loc.City
			if region == "" {
				region = loc.Region
			}
		}
	}

	if city == "" {
		city = req.PlaceName
	}
	if city == "" {
		city = "Unknown"
	}
	if address == "" {
		address = fmt.Sprintf("%f, %f", *req.Latitude, *req.Longitude)
	}
	if region == "" {
		region = "Unknown"
	}
	return address, city, region
}
