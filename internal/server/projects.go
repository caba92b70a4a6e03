package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timetracker/internal/admin"
	"timetracker/internal/session"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type taskRequest struct {
	Name string `json:"name"`
}

type assignmentRequest struct {
	Assigned *bool `json:"assigned"`
}

// pageBody is the standard admin response: the rendered view plus the
// notifications raised while handling the request.
func pageBody(sess *session.Session, extra gin.H) gin.H {
	body := gin.H{
		"page":          sess.View.Render(),
		"notifications": sess.Inbox.Drain(),
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

// handleProjects mounts the view on first use and returns it.
func (s *Server) handleProjects(c *gin.Context) {
	sess := currentSession(c)
	if err := sess.EnsureMounted(c.Request.Context()); errors.Is(err, admin.ErrClosed) {
		s.respondError(c, err, nil)
		return
	}
	respondSuccess(c, http.StatusOK, pageBody(sess, nil))
}

// handleReload re-fetches projects, their tasks and the employee roster.
func (s *Server) handleReload(c *gin.Context) {
	sess := currentSession(c)
	if err := sess.Refresh(c.Request.Context()); err != nil {
		s.respondError(c, err, pageBody(sess, nil))
		return
	}
	respondSuccess(c, http.StatusOK, pageBody(sess, nil))
}

// handleCreateProject creates a project from the submitted form.
func (s *Server) handleCreateProject(c *gin.Context) {
	sess := currentSession(c)
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err), nil)
		return
	}

	sess.View.SetProjectDraft(req.Name, req.Description)
	project, err := sess.View.CreateProject(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		s.respondError(c, err, pageBody(sess, nil))
		return
	}
	respondSuccess(c, http.StatusCreated, pageBody(sess, gin.H{"project": project}))
}

// handleProjectDraft stores the new-project form input.
func (s *Server) handleProjectDraft(c *gin.Context) {
	sess := currentSession(c)
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err), nil)
		return
	}
	sess.View.SetProjectDraft(req.Name, req.Description)
	respondSuccess(c, http.StatusOK, pageBody(sess, nil))
}

// handleTaskDraft stores one project's new-task input.
func (s *Server) handleTaskDraft(c *gin.Context) {
	sess := currentSession(c)
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err), nil)
		return
	}
	sess.View.SetTaskDraft(projectID, req.Name)
	respondSuccess(c, http.StatusOK, pageBody(sess, nil))
}

// handleCreateTask adds a task to a project.
func (s *Server) handleCreateTask(c *gin.Context) {
	sess := currentSession(c)
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err), nil)
		return
	}

	sess.View.SetTaskDraft(projectID, req.Name)
	task, err := sess.View.CreateTask(c.Request.Context(), projectID, req.Name)
	if err != nil {
		s.respondError(c, err, pageBody(sess, nil))
		return
	}
	respondSuccess(c, http.StatusCreated, pageBody(sess, gin.H{"task": task}))
}

// handleSetAssignment toggles one employee's membership of a project.
func (s *Server) handleSetAssignment(c *gin.Context) {
	sess := currentSession(c)
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	employeeID, ok := parseID(c, "employeeID")
	if !ok {
		return
	}
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err), nil)
		return
	}
	if req.Assigned == nil {
		s.respondError(c, badRequest(errors.New("assigned is required")), nil)
		return
	}

	if err := sess.View.SetAssignment(c.Request.Context(), projectID, employeeID, *req.Assigned); err != nil {
		s.respondError(c, err, pageBody(sess, nil))
		return
	}
	respondSuccess(c, http.StatusOK, pageBody(sess, nil))
}

// handleNotifications drains the session inbox.
func (s *Server) handleNotifications(c *gin.Context) {
	sess := currentSession(c)
	respondSuccess(c, http.StatusOK, gin.H{"notifications": sess.Inbox.Drain()})
}

// handleEndSession tears the caller's session down, if it is still live, and
// clears the cookie. It never opens a session.
func (s *Server) handleEndSession(c *gin.Context) {
	id, _ := c.Cookie(SessionCookie)
	if sess, ok := s.sessions.Lookup(id); ok {
		s.sessions.Close(sess.ID)
	}
	s.clearSessionCookie(c)
	respondSuccess(c, http.StatusNoContent, nil)
}
