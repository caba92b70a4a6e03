package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the compiled console SPA. Paths outside /api fall back
// to index.html so client-side routes (/verify, /dashboard, /admin/projects)
// survive a reload.
func (s *Server) mountStatic() {
	s.engine.NoRoute(s.notFound(""))

	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return
	}
	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", s.staticDir, "error", err)
		return
	}

	indexPath := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Warn("index.html not found", "path", indexPath, "error", err)
	} else {
		s.engine.GET("/", func(c *gin.Context) { c.File(indexPath) })
		s.engine.NoRoute(s.notFound(indexPath))
	}

	for _, name := range []string{"assets", "img"} {
		dir := filepath.Join(s.staticDir, name)
		if _, err := os.Stat(dir); err == nil {
			s.engine.StaticFS("/"+name, gin.Dir(dir, false))
		}
	}
	for _, name := range []string{"favicon.ico", "robots.txt"} {
		file := filepath.Join(s.staticDir, name)
		if _, err := os.Stat(file); err == nil {
			s.engine.StaticFile("/"+name, file)
		}
	}
}

// notFound answers unknown /api paths with JSON and everything else with
// the SPA entry point, when there is one.
func (s *Server) notFound(indexPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if indexPath == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File(indexPath)
	}
}
