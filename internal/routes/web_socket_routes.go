package routes

import (
	"github.com/gin-gonic/gin"

	"transit_tracker/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, ctl *controllers.Controller) {
	r.GET("/ws", ctl.HandleWebSocket)
}
