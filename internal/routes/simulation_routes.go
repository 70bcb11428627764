package routes

import (
	"github.com/gin-gonic/gin"

	"transit_tracker/internal/controllers"
)

func SimulationRoutes(r *gin.Engine, ctl *controllers.Controller) {
	sim := r.Group("/api/simulation")
	{
		sim.POST("/start", ctl.StartSimulation)
		sim.POST("/stop", ctl.StopSimulation)
		sim.POST("/speed", ctl.SetSimulationSpeed)
		sim.POST("/vehicles", ctl.AddSimulatedVehicle)
		sim.GET("/status", ctl.SimulationStatus)
	}
}
