package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"civicgo/backend/internal/analysis"
	"civicgo/backend/internal/config"
	"civicgo/backend/internal/intake"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/status"
	"civicgo/backend/internal/storage"
	"civicgo/backend/internal/upvote"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var valErr *intake.ValidationError
	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Error(), "fields": valErr.Fields})
	case errors.Is(err, intake.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.Is(err, status.ErrNotFound), errors.Is(err, upvote.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
	case errors.Is(err, status.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status transition"})
	case errors.Is(err, status.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to change complaint status"})
	case errors.Is(err, upvote.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent upvote, retry"})
	default:
		log.Printf("ERROR: unhandled service error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func complaintID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid complaint id"})
		return 0, false
	}
	return uint(id), true
}

// CreateComplaint accepts a multipart submission with an optional photo and
// files a complaint through the intake service.
func (h *Handler) CreateComplaint(c *gin.Context) {
	actorID := c.MustGet("actorID").(string)

	req := intake.SubmitRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		IssueType:   models.IssueCategory(c.PostForm("issue_type")),
		Severity:    models.Severity(c.PostForm("severity")),
		Address:     c.PostForm("address"),
		PlaceName:   c.PostForm("place_name"),
		Region:      c.PostForm("region"),
	}

	if latStr := c.PostForm("latitude"); latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid latitude"})
			return
		}
		req.Latitude = &lat
	}
	if lngStr := c.PostForm("longitude"); lngStr != "" {
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid longitude"})
			return
		}
		req.Longitude = &lng
	}

	if file, err := c.FormFile("image"); err == nil {
		filename := uuid.New().String() + filepath.Ext(file.Filename)
		dst := filepath.Join(h.UploadDir, filename)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
			return
		}
		req.ImageURL = "/uploads/" + filename
	}

	complaint, err := h.Intake.Submit(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, complaint)
}

// ListComplaints returns every complaint. Officers and admins use this for
// the dashboard's full view.
func (h *Handler) ListComplaints(c *gin.Context) {
	complaints, err := h.Store.ListComplaints(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

// GetComplaint returns a single complaint by id.
func (h *Handler) GetComplaint(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}

	complaint, err := h.Store.GetComplaint(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// MyComplaints returns the complaints filed by the authenticated user.
func (h *Handler) MyComplaints(c *gin.Context) {
	actorID := c.MustGet("actorID").(string)

	complaints, err := h.Store.ListComplaintsByUser(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

type feedItem struct {
	models.Complaint
	Priority int `json:"priority"`
}

// Feed returns the newest complaints annotated with their triage score.
// Public endpoint; the mobile client shows it without a login.
func (h *Handler) Feed(c *gin.Context) {
	complaints, err := h.Store.ListFeed(c.Request.Context(), config.FeedLimit)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	items := make([]feedItem, 0, len(complaints))
	for i := range complaints {
		items = append(items, feedItem{
			Complaint: complaints[i],
			Priority:  analysis.Priority(&complaints[i], now),
		})
	}
	c.JSON(http.StatusOK, items)
}

// ComplaintsByCity returns complaints for one city, for the authority
// dashboard.
func (h *Handler) ComplaintsByCity(c *gin.Context) {
	city := c.Param("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "City required"})
		return
	}

	complaints, err := h.Store.ListComplaintsByCity(c.Request.Context(), city)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

type updateStatusRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
	Notes     string `json:"notes"`
}

// UpdateStatus requests a status transition on a complaint. The transition
// service is the sole authority on whether the move is allowed.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	actor := status.Actor{
		ID:   c.MustGet("actorID").(string),
		Role: c.MustGet("actorRole").(models.Role),
	}

	complaint, err := h.Transitions.Transition(c.Request.Context(), id, models.ComplaintStatus(req.NewStatus), actor, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// ToggleUpvote flips the authenticated user's upvote on a complaint.
func (h *Handler) ToggleUpvote(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	actorID := c.MustGet("actorID").(string)

	result, err := h.Upvotes.Toggle(c.Request.Context(), actorID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type historyItem struct {
	OldStatus models.ComplaintStatus `json:"old_status"`
	NewStatus models.ComplaintStatus `json:"new_status"`
	Actor     string                 `json:"actor"`
	Notes     string                 `json:"notes,omitempty"`
	At        time.Time              `json:"at"`
}

// StatusHistory returns the complaint's transition ledger with actor names
// resolved.
func (h *Handler) StatusHistory(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}

	entries, err := h.Transitions.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	names := make(map[string]string)
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		actor := "System"
		if e.ActorID != nil {
			name, cached := names[*e.ActorID]
			if !cached {
				if user, err := h.Store.GetUserByID(c.Request.Context(), *e.ActorID); err == nil {
					name = user.Name
				} else {
					name = *e.ActorID
				}
				names[*e.ActorID] = name
			}
			actor = name
		}
		items = append(items, historyItem{
			OldStatus: e.OldStatus,
			NewStatus: e.NewStatus,
			Actor:     actor,
			Notes:     e.Notes,
			At:        e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

// DeleteComplaint physically removes a complaint and its ledgers. Admin
// only.
func (h *Handler) DeleteComplaint(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}

	if err := h.Store.HardDeleteComplaint(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Complaint %d deleted", id)})
}
