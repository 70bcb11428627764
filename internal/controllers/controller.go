package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/hub"
	"transit_tracker/internal/ingest"
	"transit_tracker/internal/query"
	"transit_tracker/internal/registry"
	"transit_tracker/internal/routing"
	"transit_tracker/internal/simulator"
	"transit_tracker/internal/vehicles"
)

// Broker state values reported by /api/health.
const (
	BrokerDisabled     = "disabled"
	BrokerConnected    = "connected"
	BrokerDisconnected = "disconnected"
)

// Deps are the services the HTTP layer talks to.
type Deps struct {
	// Ctx bounds background work started from requests, such as the
	// simulator loop; it must outlive any single request.
	Ctx       context.Context
	Query     *query.Service
	Registry  *registry.Registry
	Resolver  *vehicles.Resolver
	Ingest    *ingest.Adapter
	Simulator *simulator.Simulator
	Routing   *routing.Client
	Hub       *hub.Hub
	// BrokerState reports the telemetry broker connection; nil means disabled.
	BrokerState func() string
}

type Controller struct {
	Deps
}

func New(d Deps) *Controller {
	if d.Ctx == nil {
		d.Ctx = context.Background()
	}
	return &Controller{Deps: d}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// respondError maps service errors to status codes. Anything unrecognised is
// logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var coordErr *geo.CoordinateError
	switch {
	case errors.As(err, &coordErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": coordErr.Error()})
	case errors.Is(err, query.ErrNoStops):
		c.JSON(http.StatusNotFound, gin.H{"error": "no stops"})
	case errors.Is(err, query.ErrNoStopInRadius):
		c.JSON(http.StatusNotFound, gin.H{"error": "no stop within radius"})
	case errors.Is(err, query.ErrStopNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "stop not found"})
	case errors.Is(err, query.ErrRouteNotFound), errors.Is(err, simulator.ErrUnknownRoute):
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	case errors.Is(err, query.ErrVehicleUnknown):
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
	case errors.Is(err, simulator.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, simulator.ErrMultiplierRange),
		errors.Is(err, simulator.ErrRouteTooShort),
		errors.Is(err, ingest.ErrMalformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
