// Package httpserver exposes a minimal gin health/readiness surface for the
// daemon process, grounded on the teacher's HealthHandler/NewRouter shape
// but scaled to this module's single concern: tell an orchestrator the
// process is alive and the database is reachable.
package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/platform/logger"
)

// Config controls the health server.
type Config struct {
	DB  *gorm.DB
	Log *logger.Logger
}

// New builds the gin engine. It does not listen; call Run or use as an
// http.Handler directly (useful for tests via httptest).
func New(cfg Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(cfg.Log))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := cfg.DB.DB()
		if err != nil {
			c.String(http.StatusServiceUnavailable, "db handle unavailable: %v", err)
			return
		}
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "db unreachable: %v", err)
			return
		}
		c.String(http.StatusOK, "ready")
	})

	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status())
	}
}
