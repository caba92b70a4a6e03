package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"timetracker/internal/admin"
	"timetracker/internal/dashboard"
	"timetracker/internal/downloads"
	"timetracker/internal/register"
	"timetracker/internal/remote"
	"timetracker/internal/session"
)

// API is everything the console needs from the remote time tracker API.
type API interface {
	admin.API
	register.API
	dashboard.API
	Health(ctx context.Context) error
}

// Deps are the collaborators of the console server.
type Deps struct {
	API       API
	Sessions  *session.Registry
	Downloads downloads.Catalog
	Logger    *slog.Logger
	StaticDir string
	// SecureCookie marks the session cookie Secure; set behind TLS.
	SecureCookie bool
}

// Server provides HTTP handlers for the time tracker web console.
type Server struct {
	engine       *gin.Engine
	api          API
	sessions     *session.Registry
	downloads    downloads.Catalog
	logger       *slog.Logger
	staticDir    string
	secureCookie bool
}

// New constructs the HTTP server with routes and middleware configured.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:       router,
		api:          deps.API,
		sessions:     deps.Sessions,
		downloads:    deps.Downloads,
		logger:       logger,
		staticDir:    deps.StaticDir,
		secureCookie: deps.SecureCookie,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/register", s.handleRegister)
		api.GET("/verify", s.handleVerify)
		api.GET("/downloads", s.handleDownloads)
		api.GET("/downloads/:platform", s.handleDownload)
		api.GET("/dashboard", s.handleDashboard)

		adm := api.Group("/admin", s.withSession)
		{
			adm.GET("/projects", s.handleProjects)
			adm.POST("/projects/reload", s.handleReload)
			adm.POST("/projects", s.handleCreateProject)
			adm.PUT("/projects/draft", s.handleProjectDraft)
			adm.PUT("/projects/:id/draft", s.handleTaskDraft)
			adm.POST("/projects/:id/tasks", s.handleCreateTask)
			adm.PUT("/projects/:id/employees/:employeeID", s.handleSetAssignment)
			adm.GET("/notifications", s.handleNotifications)
		}
		api.DELETE("/admin/session", s.handleEndSession)
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint and reports whether the
// remote API answers.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	remoteStatus := "ok"
	if err := s.api.Health(ctx); err != nil {
		remoteStatus = "unavailable"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "remote": remoteStatus})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload. extra is merged
// into the body.
func (s *Server) respondError(c *gin.Context, err error, extra gin.H) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	body := gin.H{"error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondSuccess writes payload, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// statusOf maps domain and remote errors to console status codes. Client
// errors from the remote API keep their status; anything else from it is a
// bad gateway.
func statusOf(err error) int {
	var (
		apiErr *remote.APIError
		reqErr requestError
	)
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, admin.ErrEmptyName),
		errors.Is(err, register.ErrMissingFields),
		errors.Is(err, register.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, admin.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}

// requestError marks a malformed request body.
type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }

func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err: err} }
