package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/models"
	"github.com/teamops/teamops/internal/service"
	svcpublisher "github.com/teamops/teamops/internal/service/publisher"
)

type stubStore struct {
	createJobFn func(job *models.ContentJob) error
	getJobFn    func(id uint) (*models.ContentJob, error)
	listJobsFn  func() ([]models.ContentJob, error)
	createFn    func(jobID uint, platform string, scheduledFor time.Time, channelID *uint, meta models.JSONMap) (*models.ScheduleEntry, error)
	getFn       func(id uint) (*models.ScheduleEntry, error)
	listFn      func() ([]models.ScheduleListItem, error)
	updateFn    func(id uint, platform string, scheduledFor time.Time) error
	cancelFn    func(id uint) error
	retryFn     func(id uint) error
}

func (s *stubStore) CreateJob(job *models.ContentJob) error {
	if s.createJobFn == nil {
		return nil
	}
	return s.createJobFn(job)
}

func (s *stubStore) GetJob(id uint) (*models.ContentJob, error) {
	if s.getJobFn == nil {
		return nil, service.ErrNotFound
	}
	return s.getJobFn(id)
}

func (s *stubStore) ListJobs() ([]models.ContentJob, error) {
	if s.listJobsFn == nil {
		return nil, nil
	}
	return s.listJobsFn()
}

func (s *stubStore) Create(jobID uint, platform string, scheduledFor time.Time, channelID *uint, meta models.JSONMap) (*models.ScheduleEntry, error) {
	if s.createFn == nil {
		return &models.ScheduleEntry{ID: 1, JobID: jobID, Platform: platform, ScheduledFor: scheduledFor}, nil
	}
	return s.createFn(jobID, platform, scheduledFor, channelID, meta)
}

func (s *stubStore) Get(id uint) (*models.ScheduleEntry, error) {
	if s.getFn == nil {
		return &models.ScheduleEntry{ID: id}, nil
	}
	return s.getFn(id)
}

func (s *stubStore) List() ([]models.ScheduleListItem, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn()
}

func (s *stubStore) UpdateTimeAndPlatform(id uint, platform string, scheduledFor time.Time) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(id, platform, scheduledFor)
}

func (s *stubStore) Cancel(id uint) error {
	if s.cancelFn == nil {
		return nil
	}
	return s.cancelFn(id)
}

func (s *stubStore) Retry(id uint) error {
	if s.retryFn == nil {
		return nil
	}
	return s.retryFn(id)
}

type stubPublisher struct {
	slug    string
	healthy bool
}

func (p *stubPublisher) Slug() string { return p.slug }

func (p *stubPublisher) Info() svcpublisher.Info { return svcpublisher.Info{Slug: p.slug} }

func (p *stubPublisher) HealthCheck() svcpublisher.Result {
	return svcpublisher.Result{Success: p.healthy, Platform: p.slug, Message: "stub"}
}

func (p *stubPublisher) PreparePayload(job *models.ContentJob) map[string]interface{} {
	return map[string]interface{}{"title": job.Title}
}

func (p *stubPublisher) Publish(context.Context, *models.ContentJob, *models.ScheduleEntry) (*svcpublisher.Result, error) {
	return &svcpublisher.Result{Success: true, Platform: p.slug}, nil
}

func newTestServer(t *testing.T, store scheduleStore) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	registry := svcpublisher.NewRegistry(logger)
	if err := registry.Register(&stubPublisher{slug: "reddit", healthy: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(&stubPublisher{slug: "twitter_x", healthy: false}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	registry.Alias("x", "twitter_x")

	srv := &Server{
		Router:   gin.New(),
		Logger:   logger,
		Registry: registry,
		Health:   service.NewHealthMonitor(registry, "@every 5m", logger),
		store:    store,
	}
	srv.setupRoutes()
	return srv
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}

func TestCreateSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
	}{
		{
			name:       "valid",
			body:       `{"job_id": 7, "platform": "reddit", "scheduled_for": "2026-03-01T14:30"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "bad time format",
			body:       `{"job_id": 7, "platform": "reddit", "scheduled_for": "tomorrow"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing job_id",
			body:       `{"platform": "reddit", "scheduled_for": "2026-03-01T14:30"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown platform",
			body:       `{"job_id": 7, "platform": "mastodon", "scheduled_for": "2026-03-01T14:30"}`,
			createErr:  fmt.Errorf("%w: mastodon", svcpublisher.ErrUnsupportedPlatform),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "job does not exist",
			body:       `{"job_id": 999, "platform": "reddit", "scheduled_for": "2026-03-01T14:30"}`,
			createErr:  service.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &stubStore{}
			if tt.createErr != nil {
				store.createFn = func(uint, string, time.Time, *uint, models.JSONMap) (*models.ScheduleEntry, error) {
					return nil, tt.createErr
				}
			}
			srv := newTestServer(t, store)

			w := doRequest(srv, http.MethodPost, "/api/v1/schedule", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestCreateScheduleParsesMinutePrecision(t *testing.T) {
	t.Parallel()

	var got time.Time
	store := &stubStore{
		createFn: func(jobID uint, platform string, scheduledFor time.Time, _ *uint, _ models.JSONMap) (*models.ScheduleEntry, error) {
			got = scheduledFor
			return &models.ScheduleEntry{ID: 1, JobID: jobID, Platform: platform, ScheduledFor: scheduledFor}, nil
		},
	}
	srv := newTestServer(t, store)

	w := doRequest(srv, http.MethodPost, "/api/v1/schedule",
		`{"job_id": 7, "platform": "reddit", "scheduled_for": "2026-03-01T14:30"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	want := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("stored time = %v, want %v", got, want)
	}
}

func TestUpdateScheduleConflict(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		updateFn: func(uint, string, time.Time) error { return service.ErrInvalidState },
	}
	srv := newTestServer(t, store)

	w := doRequest(srv, http.MethodPut, "/api/v1/schedule/5",
		`{"platform": "reddit", "scheduled_for": "2026-03-01T14:30"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 (body %s)", w.Code, w.Body.String())
	}
}

func TestCancelScheduleIdempotent(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubStore{})

	for i := 0; i < 2; i++ {
		w := doRequest(srv, http.MethodPost, "/api/v1/schedule/5/cancel", "")
		if w.Code != http.StatusOK {
			t.Errorf("cancel #%d status = %d, want 200", i+1, w.Code)
		}
	}
}

func TestCancelScheduleBadID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubStore{})

	w := doRequest(srv, http.MethodPost, "/api/v1/schedule/abc/cancel", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRetrySchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		retryErr   error
		wantStatus int
	}{
		{name: "retryable", wantStatus: http.StatusOK},
		{name: "wrong state", retryErr: service.ErrInvalidState, wantStatus: http.StatusConflict},
		{name: "missing", retryErr: service.ErrNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &stubStore{}
			if tt.retryErr != nil {
				store.retryFn = func(uint) error { return tt.retryErr }
			}
			srv := newTestServer(t, store)

			w := doRequest(srv, http.MethodPost, "/api/v1/schedule/5/retry", "")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestListSchedule(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		listFn: func() ([]models.ScheduleListItem, error) {
			return []models.ScheduleListItem{
				{ID: 1, JobID: 7, Platform: "reddit", Status: models.ScheduleStatusScheduled, JobTitle: "Digest"},
			}, nil
		},
	}
	srv := newTestServer(t, store)

	w := doRequest(srv, http.MethodGet, "/api/v1/schedule", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Schedules []models.ScheduleListItem `json:"schedules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Schedules) != 1 || resp.Schedules[0].JobTitle != "Digest" {
		t.Errorf("schedules = %+v", resp.Schedules)
	}
}

func TestListPublishers(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubStore{})

	w := doRequest(srv, http.MethodGet, "/api/v1/publishers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Publishers []svcpublisher.Info `json:"publishers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Publishers) != 2 {
		t.Errorf("publishers = %+v, want 2 entries", resp.Publishers)
	}
}

func TestPublishDryRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		platform   string
		body       string
		wantStatus int
	}{
		{
			name:       "healthy publisher returns payload",
			platform:   "reddit",
			body:       `{"title": "T", "generated_content": "body"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "alias resolves",
			platform:   "x",
			body:       `{"title": "T"}`,
			wantStatus: http.StatusBadRequest, // twitter_x stub is unhealthy
		},
		{
			name:       "unknown publisher",
			platform:   "mastodon",
			body:       `{"title": "T"}`,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, &stubStore{})

			w := doRequest(srv, http.MethodPost, "/api/v1/publish/"+tt.platform+"/dry_run", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubStore{})

	w := doRequest(srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
