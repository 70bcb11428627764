package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"transit_tracker/internal/geo"
)

// NearestStop handles GET /api/nearest_stop?lat=&lon=[&radius_m=].
func (ctl *Controller) NearestStop(c *gin.Context) {
	p, ok := queryPoint(c, "lat", "lon")
	if !ok {
		badRequest(c, "lat & lon required")
		return
	}
	if err := geo.ValidatePoint(p, ""); err != nil {
		respondError(c, err)
		return
	}

	radiusKm := 0.0
	if raw := c.Query("radius_m"); raw != "" {
		m, err := strconv.ParseFloat(raw, 64)
		if err != nil || m <= 0 {
			badRequest(c, "radius_m must be a positive number")
			return
		}
		radiusKm = m / 1000
	}

	res, err := ctl.Query.NearestStop(p, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StopDetail handles GET /api/stop/:stopId[?dest=].
func (ctl *Controller) StopDetail(c *gin.Context) {
	detail, err := ctl.Query.StopDetail(c.Param("stopId"), c.Query("dest"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// queryPoint parses two float query parameters. Missing or non-numeric
// values report false.
func queryPoint(c *gin.Context, latKey, lonKey string) (geo.Point, bool) {
	lat, err := strconv.ParseFloat(c.Query(latKey), 64)
	if err != nil {
		return geo.Point{}, false
	}
	lon, err := strconv.ParseFloat(c.Query(lonKey), 64)
	if err != nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lon: lon}, true
}
