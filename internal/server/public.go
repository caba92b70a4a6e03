package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timetracker/internal/dashboard"
	"timetracker/internal/notify"
	"timetracker/internal/register"
)

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// handleRegister runs employee self-registration.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err), nil)
		return
	}

	inbox := notify.NewQueue(0)
	employee, err := register.New(s.api, inbox, s.logger).Register(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		s.respondError(c, err, gin.H{"notifications": inbox.Drain()})
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"employee": employee, "notifications": inbox.Drain()})
}

// handleVerify verifies the token from an emailed link. The page state is
// always returned with 200; the status field says how it went.
func (s *Server) handleVerify(c *gin.Context) {
	inbox := notify.NewQueue(0)
	v := register.New(s.api, inbox, s.logger).Verify(c.Request.Context(), c.Request.URL.Query())
	respondSuccess(c, http.StatusOK, gin.H{"verification": v, "notifications": inbox.Drain()})
}

// handleDownloads returns the installer catalogue.
func (s *Server) handleDownloads(c *gin.Context) {
	respondSuccess(c, http.StatusOK, s.downloads)
}

// handleDownload redirects to one platform's installer.
func (s *Server) handleDownload(c *gin.Context) {
	installer, err := s.downloads.Link(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, installer.URL)
}

// handleDashboard loads the overview page.
func (s *Server) handleDashboard(c *gin.Context) {
	inbox := notify.NewQueue(0)
	summary, err := dashboard.NewLoader(s.api, inbox, s.logger).Load(c.Request.Context())
	if err != nil {
		s.respondError(c, err, gin.H{"notifications": inbox.Drain()})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"dashboard": summary, "notifications": inbox.Drain()})
}
