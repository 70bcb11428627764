package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transit_tracker/internal/simulator"
)

func (ctl *Controller) StartSimulation(c *gin.Context) {
	ctl.Simulator.Start(ctl.Ctx)
	c.JSON(http.StatusOK, ctl.Simulator.Status())
}

func (ctl *Controller) StopSimulation(c *gin.Context) {
	ctl.Simulator.Stop()
	c.JSON(http.StatusOK, ctl.Simulator.Status())
}

func (ctl *Controller) SimulationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Simulator.Status())
}

type speedRequest struct {
	Multiplier *float64 `json:"multiplier"`
}

// SetSimulationSpeed changes the time multiplier; out of range is a 400.
func (ctl *Controller) SetSimulationSpeed(c *gin.Context) {
	var input speedRequest
	if err := c.ShouldBindJSON(&input); err != nil || input.Multiplier == nil {
		badRequest(c, "multiplier required")
		return
	}
	if err := ctl.Simulator.SetSpeedMultiplier(*input.Multiplier); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctl.Simulator.Status())
}

// AddSimulatedVehicle places a new simulated vehicle on an existing route.
func (ctl *Controller) AddSimulatedVehicle(c *gin.Context) {
	var input simulator.VehicleConfig
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("AddSimulatedVehicle: invalid input payload")
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	if input.ID == "" || input.RouteID == "" {
		badRequest(c, "id & routeId required")
		return
	}
	st, err := ctl.Simulator.AddVehicle(input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}
