package controllers

import (
	"github.com/gin-gonic/gin"
)

// HandleWebSocket upgrades the request and streams telemetry envelopes,
// starting with one per known vehicle.
func (ctl *Controller) HandleWebSocket(c *gin.Context) {
	ctl.Hub.ServeWS(c.Writer, c.Request)
}
