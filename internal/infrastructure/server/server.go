package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpHandlers "github.com/taskdesk/core/internal/adapters/http"
	"github.com/taskdesk/core/internal/infrastructure/config"
	"github.com/taskdesk/core/internal/infrastructure/database"
	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/infrastructure/metrics"
)

// Handlers groups the request handlers the server routes to
type Handlers struct {
	Tasks   *httpHandlers.TaskHandler
	Users   *httpHandlers.UserHandler
	Stats   *httpHandlers.StatsHandler
	Reports *httpHandlers.ReportHandler
}

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	db     *database.DB
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, handlers Handlers, appLogger *logger.Logger) *Server {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		db:     db,
	}

	server.setupMiddleware()
	server.setupRoutes(handlers)

	if cfg.Metrics.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	return server
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1e6,
				"remote_ip", values.RemoteIP,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(50), Burst: 100, ExpiresIn: time.Minute},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))

	// request duration metric across all routes
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			metrics.HTTPRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(c.Response().Status),
			).Observe(time.Since(start).Seconds())
			return err
		}
	})
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h Handlers) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	v1 := s.echo.Group("/api/v1")

	userGroup := v1.Group("/users")
	userGroup.POST("", h.Users.RegisterUser)
	userGroup.GET("", h.Users.ListUsers)
	userGroup.POST("/activity", h.Users.TouchActivity)
	userGroup.GET("/by-chat/:chat_id", h.Users.GetUserByChatID)
	userGroup.GET("/:id", h.Users.GetUser)
	userGroup.DELETE("/:id", h.Users.DeactivateUser)
	userGroup.GET("/:id/tasks", h.Users.ListUserTasks)
	userGroup.GET("/:id/stats", h.Stats.GetUserStats)

	taskGroup := v1.Group("/tasks")
	taskGroup.GET("", h.Tasks.ListTasks)
	taskGroup.POST("", h.Tasks.CreateTask)
	taskGroup.GET("/search", h.Tasks.SearchTasks)
	taskGroup.GET("/overdue", h.Tasks.ListOverdueTasks)
	taskGroup.GET("/:id", h.Tasks.GetTask)
	taskGroup.PATCH("/:id", h.Tasks.UpdateTask)
	taskGroup.POST("/:id/status", h.Tasks.UpdateTaskStatus)
	taskGroup.POST("/:id/assign", h.Tasks.AssignTask)
	taskGroup.POST("/:id/cancel", h.Tasks.CancelTask)
	taskGroup.GET("/:id/history", h.Tasks.GetTaskHistory)

	v1.GET("/stats", h.Stats.GetGeneralStats)

	reportGroup := v1.Group("/reports")
	reportGroup.GET("/tasks.xlsx", h.Reports.DownloadTasksWorkbook)
	reportGroup.GET("/status.png", h.Reports.DownloadStatusChart)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// Start begins serving requests
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Infow("starting HTTP server", "addr", addr)

	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
