package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/models"
	"github.com/teamops/teamops/internal/service"
	"github.com/teamops/teamops/internal/service/publisher"
	"github.com/teamops/teamops/pkg/util"
)

// scheduleStore is the slice of ScheduleStore the handlers need.
type scheduleStore interface {
	CreateJob(job *models.ContentJob) error
	GetJob(id uint) (*models.ContentJob, error)
	ListJobs() ([]models.ContentJob, error)
	Create(jobID uint, platform string, scheduledFor time.Time, channelID *uint, meta models.JSONMap) (*models.ScheduleEntry, error)
	Get(id uint) (*models.ScheduleEntry, error)
	List() ([]models.ScheduleListItem, error)
	UpdateTimeAndPlatform(id uint, platform string, scheduledFor time.Time) error
	Cancel(id uint) error
	Retry(id uint) error
}

type createJobRequest struct {
	ProfileName      string `json:"profile_name"`
	Title            string `json:"title" binding:"required"`
	ContentType      string `json:"content_type"`
	GeneratedContent string `json:"generated_content"`
}

type createScheduleRequest struct {
	JobID        uint           `json:"job_id" binding:"required"`
	Platform     string         `json:"platform" binding:"required"`
	ScheduledFor string         `json:"scheduled_for" binding:"required"`
	ChannelID    *uint          `json:"channel_id"`
	Meta         models.JSONMap `json:"meta"`
}

type updateScheduleRequest struct {
	Platform     string `json:"platform" binding:"required"`
	ScheduledFor string `json:"scheduled_for" binding:"required"`
}

type dryRunRequest struct {
	JobID            uint   `json:"job_id"`
	Title            string `json:"title"`
	ContentType      string `json:"content_type"`
	GeneratedContent string `json:"generated_content"`
}

func (s *Server) handleCreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &models.ContentJob{
		ProfileName:      req.ProfileName,
		Title:            req.Title,
		ContentType:      req.ContentType,
		GeneratedContent: req.GeneratedContent,
	}
	if err := s.store.CreateJob(job); err != nil {
		s.fail(c, "create job", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"job": job})
}

func (s *Server) handleListJobs(c *gin.Context) {
	jobs, err := s.store.ListJobs()
	if err != nil {
		s.fail(c, "list jobs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleCreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	when, err := util.ParseScheduleTime(req.ScheduledFor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := s.store.Create(req.JobID, req.Platform, when, req.ChannelID, req.Meta)
	if err != nil {
		s.fail(c, "create schedule", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"schedule": entry})
}

func (s *Server) handleListSchedule(c *gin.Context) {
	items, err := s.store.List()
	if err != nil {
		s.fail(c, "list schedule", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"schedules": items})
}

func (s *Server) handleUpdateSchedule(c *gin.Context) {
	id, ok := s.entryID(c)
	if !ok {
		return
	}

	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	when, err := util.ParseScheduleTime(req.ScheduledFor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.UpdateTimeAndPlatform(id, req.Platform, when); err != nil {
		s.fail(c, "update schedule", err)
		return
	}

	entry, err := s.store.Get(id)
	if err != nil {
		s.fail(c, "update schedule", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"schedule": entry})
}

func (s *Server) handleCancelSchedule(c *gin.Context) {
	id, ok := s.entryID(c)
	if !ok {
		return
	}

	if err := s.store.Cancel(id); err != nil {
		s.fail(c, "cancel schedule", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleRetrySchedule(c *gin.Context) {
	id, ok := s.entryID(c)
	if !ok {
		return
	}

	if err := s.store.Retry(id); err != nil {
		s.fail(c, "retry schedule", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleListPublishers(c *gin.Context) {
	health, checkedAt := s.Health.Latest()

	c.JSON(http.StatusOK, gin.H{
		"publishers": s.Registry.List(),
		"health":     health,
		"checked_at": checkedAt,
	})
}

func (s *Server) handlePublishDryRun(c *gin.Context) {
	pub, err := s.Registry.Resolve(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "publisher not found"})
		return
	}

	var req dryRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &models.ContentJob{
		Title:            req.Title,
		ContentType:      req.ContentType,
		GeneratedContent: req.GeneratedContent,
	}
	if req.JobID != 0 {
		stored, err := s.store.GetJob(req.JobID)
		if err != nil {
			s.fail(c, "dry run", err)
			return
		}
		job = stored
	}

	if health := pub.HealthCheck(); !health.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publisher not healthy", "detail": health.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"publisher":       pub.Slug(),
		"dry_run_payload": pub.PreparePayload(job),
	})
}

func (s *Server) entryID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// fail maps service errors onto status codes.
func (s *Server) fail(c *gin.Context, op string, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr), errors.Is(err, publisher.ErrUnsupportedPlatform):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.Logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
