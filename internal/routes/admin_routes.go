package routes

import (
	"github.com/gin-gonic/gin"

	"transit_tracker/internal/controllers"
)

func AdminRoutes(r *gin.Engine, ctl *controllers.Controller) {
	admin := r.Group("/api/admin")
	{
		admin.POST("/map-vehicle", ctl.MapVehicle)
		admin.GET("/mappings", ctl.Mappings)
		admin.POST("/add-route", ctl.AddRoute)
	}
}
