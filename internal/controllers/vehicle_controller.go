package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transit_tracker/internal/ingest"
)

// ListBuses returns the ids of every tracked vehicle.
func (ctl *Controller) ListBuses(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Query.ListVehicleIDs())
}

// Latest returns every vehicle record keyed by id.
func (ctl *Controller) Latest(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Query.Snapshot())
}

func (ctl *Controller) GetVehicle(c *gin.Context) {
	v, err := ctl.Query.Vehicle(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// IngestTelemetry accepts one telemetry payload over HTTP and applies it
// exactly like a broker message.
func (ctl *Controller) IngestTelemetry(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		badRequest(c, "could not read body")
		return
	}
	upd, err := ctl.Ingest.Decode(body, ingest.SourceHTTP)
	if err != nil {
		logrus.WithError(err).Warn("IngestTelemetry: rejected payload")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctl.Ingest.Apply(upd))
}
