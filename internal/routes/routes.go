package routes

import (
	"io"
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"transit_tracker/internal/controllers"
	"transit_tracker/internal/middleware"
)

// SetupRouter wires every HTTP surface onto a fresh engine. metricsHandler
// may be nil when metrics are disabled; logWriter receives the access log.
func SetupRouter(ctl *controllers.Controller, metricsHandler http.Handler, logWriter io.Writer) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(ginlog.SetLogger(
		ginlog.WithWriter(logWriter),
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/metrics", "/api/health"}),
	))
	r.Use(middleware.CORS())

	APIRoutes(r, ctl)
	AdminRoutes(r, ctl)
	SimulationRoutes(r, ctl)
	WebSocketRoutes(r, ctl)

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return r
}
