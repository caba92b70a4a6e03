package devapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"timetracker/internal/models"
)

func (s *Server) handleListEmployees(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	employees, err := s.store.ListEmployees(c.Request.Context(), page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (s *Server) handleGetEmployee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	employee, err := s.store.GetEmployee(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

// handleCreateEmployee registers an employee. There is no mailer, so the
// verification link is written to the log instead.
func (s *Server) handleCreateEmployee(c *gin.Context) {
	var req models.EmployeeCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	employee, token, err := s.store.CreateEmployee(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("verification link issued",
		slog.String("email", employee.Email),
		slog.String("link", s.verificationLink(employee.ID, token)))
	c.JSON(http.StatusCreated, employee)
}

func (s *Server) handleVerifyEmployee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.EmployeeVerify
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	employee, err := s.store.VerifyEmployee(c.Request.Context(), id, req.Token)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (s *Server) handleListProjects(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	projects, err := s.store.ListProjects(c.Request.Context(), page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req models.ProjectCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	project, err := s.store.CreateProject(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// handleUpdateProject applies a partial update; employee_ids replaces the
// membership when present.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.ProjectUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	project, err := s.store.UpdateProject(c.Request.Context(), id, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.TaskCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.ProjectID = projectID
	task, err := s.store.CreateTask(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// handleListTasks lists tasks, optionally filtered by ?project_id=.
func (s *Server) handleListTasks(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	var projectID int64
	if raw := c.Query("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid project_id"})
			return
		}
		projectID = id
	}
	tasks, err := s.store.ListTasks(c.Request.Context(), projectID, page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleListTimeEntries(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	entries, err := s.store.ListTimeEntries(c.Request.Context(), page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleListActiveTimeEntries(c *gin.Context) {
	entries, err := s.store.ListActiveTimeEntries(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type startRequest struct {
	EmployeeID int64 `json:"employee_id"`
	ProjectID  int64 `json:"project_id"`
	TaskID     int64 `json:"task_id"`
}

type stopRequest struct {
	EmployeeID int64 `json:"employee_id"`
}

func (s *Server) handleStartTimeEntry(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.EmployeeID <= 0 || req.ProjectID <= 0 || req.TaskID <= 0 {
		badRequest(c, errors.New("employee_id, project_id and task_id are required"))
		return
	}
	entry, err := s.store.StartTimeEntry(c.Request.Context(), req.EmployeeID, req.ProjectID, req.TaskID, time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleStopTimeEntry(c *gin.Context) {
	var req stopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.EmployeeID <= 0 {
		badRequest(c, errors.New("employee_id is required"))
		return
	}
	entry, err := s.store.StopTimeEntry(c.Request.Context(), req.EmployeeID, time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
