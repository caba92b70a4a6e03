// Package devapi serves the remote time tracker API over the local SQLite
// store so the console can be developed and tested without the real backend.
package devapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"timetracker/internal/storage/sqlite"
)

// Server provides the /api/v1 handlers.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	logger    *slog.Logger
	verifyURL string
}

// Options tunes optional server behaviour.
type Options struct {
	// VerifyURL is the console page that verification links point at.
	VerifyURL string
	// AccessLog enables gin's request log on /api paths.
	AccessLog bool
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.VerifyURL == "" {
		opts.VerifyURL = "http://localhost:8080/verify"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.AccessLog {
		router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/health"))
	}

	srv := &Server{
		engine:    router,
		store:     store,
		logger:    logger,
		verifyURL: opts.VerifyURL,
	}
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	{
		employees := v1.Group("/employees")
		{
			employees.GET("", s.handleListEmployees)
			employees.POST("", s.handleCreateEmployee)
			employees.GET("/:id", s.handleGetEmployee)
			employees.POST("/:id/verify", s.handleVerifyEmployee)
		}

		projects := v1.Group("/projects")
		{
			projects.GET("/", s.handleListProjects)
			projects.POST("/", s.handleCreateProject)
			projects.GET("/:id", s.handleGetProject)
			projects.PATCH("/:id", s.handleUpdateProject)
			projects.POST("/:id/tasks/", s.handleCreateTask)
		}

		v1.GET("/tasks/", s.handleListTasks)

		entries := v1.Group("/time-entries")
		{
			entries.GET("", s.handleListTimeEntries)
			entries.GET("/active", s.handleListActiveTimeEntries)
			entries.POST("/start", s.handleStartTimeEntry)
			entries.POST("/stop", s.handleStopTimeEntry)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// parseID converts a path parameter to int64, answering 400 on failure.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// parsePage reads skip/limit query parameters.
func parsePage(c *gin.Context) (sqlite.Page, bool) {
	var page sqlite.Page
	for _, p := range []struct {
		name string
		dst  *int
	}{{"skip", &page.Skip}, {"limit", &page.Limit}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid " + p.name})
			return page, false
		}
		*p.dst = n
	}
	return page, true
}

// respondError maps store failures to the API's status codes and
// {"detail": ...} body.
func (s *Server) respondError(c *gin.Context, err error) {
	var storeErr *sqlite.Error
	if errors.As(err, &storeErr) {
		c.JSON(statusFor(storeErr), gin.H{"detail": storeErr.Detail})
		return
	}
	s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
}

func statusFor(err *sqlite.Error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
}

func (s *Server) verificationLink(id int64, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("id", strconv.FormatInt(id, 10))
	return s.verifyURL + "?" + q.Encode()
}
