package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Health(c *gin.Context) {
	broker := BrokerDisabled
	if ctl.BrokerState != nil {
		broker = ctl.BrokerState()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"vehicles":   len(ctl.Query.ListVehicleIDs()),
		"routes":     len(ctl.Query.ListRoutes()),
		"stops":      ctl.Registry.StopCount(),
		"ws_clients": ctl.Hub.ClientCount(),
		"broker":     broker,
		"simulation": ctl.Simulator.Running(),
	})
}
