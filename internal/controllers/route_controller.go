package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	gjson "github.com/twpayne/go-geom/encoding/geojson"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

func (ctl *Controller) ListRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Query.ListRoutes())
}

func (ctl *Controller) GetRoute(c *gin.Context) {
	route, err := ctl.Query.Route(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// RouteGeometry returns the route polyline as a GeoJSON Feature.
func (ctl *Controller) RouteGeometry(c *gin.Context) {
	route, err := ctl.Query.Route(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ls, err := geo.LineString(route.Polyline())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "route has no geometry"})
		return
	}
	feature := &gjson.Feature{
		ID:       route.ID,
		Geometry: ls,
		Properties: map[string]interface{}{
			"name":  route.Name,
			"color": route.Color,
			"stops": len(route.Stops),
		},
	}
	b, err := feature.MarshalJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", b)
}

func (ctl *Controller) ListStops(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Query.ListStops())
}

// SearchStops matches stop names against ?q=.
func (ctl *Controller) SearchStops(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		badRequest(c, "q required")
		return
	}
	c.JSON(http.StatusOK, ctl.Query.SearchStops(q))
}

type addRouteRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Color    string          `json:"color"`
	Stops    []stopInput     `json:"stops"`
	Path     []geo.Point     `json:"path"`
	Geometry json.RawMessage `json:"geometry"`
}

// stopInput keeps an absent seq apart from an explicit zero.
type stopInput struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Seq  *int    `json:"seq"`
}

// AddRoute inserts or replaces a route. Geometry may be a GeoJSON object or
// a string holding one; it takes precedence over path.
func (ctl *Controller) AddRoute(c *gin.Context) {
	var input addRouteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("AddRoute: invalid input payload")
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	if input.ID == "" || len(input.Stops) == 0 {
		badRequest(c, "id & stops required")
		return
	}
	stops := make([]models.Stop, 0, len(input.Stops))
	for i, in := range input.Stops {
		if in.ID == "" {
			badRequest(c, "every stop needs an id")
			return
		}
		stop := models.Stop{ID: in.ID, Name: in.Name, Lat: in.Lat, Lon: in.Lon, Seq: i}
		if in.Seq != nil {
			stop.Seq = *in.Seq
		}
		if err := geo.ValidatePoint(stop.Point(), ""); err != nil {
			respondError(c, err)
			return
		}
		stops = append(stops, stop)
	}

	path := input.Path
	if geometry := unwrapGeometry(input.Geometry); len(geometry) > 0 {
		p, err := geo.PathFromGeoJSON(geometry)
		if err != nil {
			badRequest(c, "Invalid geometry: "+err.Error())
			return
		}
		path = p
	}
	for _, p := range path {
		if err := geo.ValidatePoint(p, "path"); err != nil {
			respondError(c, err)
			return
		}
	}

	route := ctl.Registry.AddRoute(models.Route{
		ID:    input.ID,
		Name:  input.Name,
		Color: input.Color,
		Stops: stops,
		Path:  path,
	})
	logrus.WithFields(logrus.Fields{
		"route_id": route.ID,
		"stops":    len(route.Stops),
	}).Info("AddRoute: route registered")
	c.JSON(http.StatusOK, gin.H{"ok": true, "route": route})
}

// unwrapGeometry accepts a GeoJSON object or a JSON string containing one.
func unwrapGeometry(raw json.RawMessage) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return raw
		}
		return []byte(s)
	}
	return raw
}
