package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type mapVehicleRequest struct {
	VehicleID string `json:"vehicle_id"`
	RouteID   string `json:"routeId"`
}

// MapVehicle records a fallback vehicle → route association.
func (ctl *Controller) MapVehicle(c *gin.Context) {
	var input mapVehicleRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("MapVehicle: invalid input payload")
		badRequest(c, "vehicle_id & routeId required")
		return
	}
	if input.VehicleID == "" || input.RouteID == "" {
		badRequest(c, "vehicle_id & routeId required")
		return
	}
	ctl.Resolver.SetMapping(input.VehicleID, input.RouteID)
	logrus.WithFields(logrus.Fields{
		"vehicle_id": input.VehicleID,
		"route_id":   input.RouteID,
	}).Info("MapVehicle: mapping stored")
	c.JSON(http.StatusOK, gin.H{"ok": true, "mappings": ctl.Resolver.Mappings()})
}

func (ctl *Controller) Mappings(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Resolver.Mappings())
}
