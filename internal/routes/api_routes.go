package routes

import (
	"github.com/gin-gonic/gin"

	"transit_tracker/internal/controllers"
)

func APIRoutes(r *gin.Engine, ctl *controllers.Controller) {
	api := r.Group("/api")
	{
		api.GET("/health", ctl.Health)

		api.GET("/buses", ctl.ListBuses)
		api.GET("/latest", ctl.Latest)
		api.GET("/vehicles/:id", ctl.GetVehicle)
		api.POST("/telemetry", ctl.IngestTelemetry)

		api.GET("/routes", ctl.ListRoutes)
		api.GET("/routes/:id", ctl.GetRoute)
		api.GET("/routes/:id/geometry", ctl.RouteGeometry)

		api.GET("/stops", ctl.ListStops)
		api.GET("/stops/search", ctl.SearchStops)
		api.GET("/nearest-stop", ctl.NearestStop)
		api.GET("/stop/:stopId", ctl.StopDetail)

		api.GET("/directions", ctl.Directions)
	}
}
