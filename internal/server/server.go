package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/teamops/teamops/internal/config"
	"github.com/teamops/teamops/internal/service"
	"github.com/teamops/teamops/internal/service/publisher"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Registry   *publisher.Registry
	Store      *service.ScheduleStore
	Dispatcher *service.Dispatcher
	Health     *service.HealthMonitor

	// Handlers go through this so tests can swap in a fake.
	store scheduleStore
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	registry := service.NewPublisherRegistry(&cfg.Publisher, logger)
	store := service.NewScheduleStore(db, registry)
	throttle := service.NewThrottlePolicy(store, logger)
	dispatcher := service.NewDispatcher(&cfg.Dispatcher, store, registry, throttle, logger)
	health := service.NewHealthMonitor(registry, cfg.Dispatcher.HealthSweep, logger)

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:     cfg,
		DB:         db,
		Router:     router,
		Logger:     logger,
		Registry:   registry,
		Store:      store,
		Dispatcher: dispatcher,
		Health:     health,
		store:      store,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Request id middleware
	s.Router.Use(func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	})

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		jobs := api.Group("/jobs")
		{
			jobs.POST("", s.handleCreateJob)
			jobs.GET("", s.handleListJobs)
		}

		schedule := api.Group("/schedule")
		{
			schedule.POST("", s.handleCreateSchedule)
			schedule.GET("", s.handleListSchedule)
			schedule.PUT("/:id", s.handleUpdateSchedule)
			schedule.POST("/:id/cancel", s.handleCancelSchedule)
			schedule.POST("/:id/retry", s.handleRetrySchedule)
		}

		api.GET("/publishers", s.handleListPublishers)
		api.POST("/publish/:platform/dry_run", s.handlePublishDryRun)
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start dispatcher and health sweep
	if err := s.Dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	if err := s.Health.Start(); err != nil {
		return fmt.Errorf("failed to start health monitor: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background loops first
	s.Dispatcher.Stop()
	s.Health.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
