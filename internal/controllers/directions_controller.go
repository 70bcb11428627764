package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/routing"
)

// Directions proxies a leg request to the routing service, falling back to
// a straight-line estimate.
func (ctl *Controller) Directions(c *gin.Context) {
	from, ok := queryPoint(c, "from_lat", "from_lon")
	if !ok {
		badRequest(c, "from_lat, from_lon, to_lat & to_lon required")
		return
	}
	to, ok := queryPoint(c, "to_lat", "to_lon")
	if !ok {
		badRequest(c, "from_lat, from_lon, to_lat & to_lon required")
		return
	}
	if err := geo.ValidatePoint(from, "from"); err != nil {
		respondError(c, err)
		return
	}
	if err := geo.ValidatePoint(to, "to"); err != nil {
		respondError(c, err)
		return
	}
	profile := c.DefaultQuery("profile", routing.DefaultProfile)
	if !routing.ValidProfile(profile) {
		badRequest(c, "profile must be walking, cycling or driving")
		return
	}
	c.JSON(http.StatusOK, ctl.Routing.Route(c.Request.Context(), from, to, profile))
}
