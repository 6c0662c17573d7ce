package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"video-autopilot/infrastructure/realtime"
	httpHandler "video-autopilot/interfaces/http"
	"video-autopilot/interfaces/middleware"
)

func InitiateRouter(
	channelHandler httpHandler.IChannelHandler,
	healthHandler httpHandler.IHealthHandler,
	operatorHandler httpHandler.IOperatorHandler,
	channelAuthHandler httpHandler.IChannelAuthHandler,
	fleetHub *realtime.Hub,
	secretKey string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "https://localhost:4200"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler.Liveness)
	router.POST("/token", operatorHandler.Token)

	// OAuth consent routes stay public; Google's redirect cannot carry a
	// bearer token.
	if channelAuthHandler != nil {
		router.GET("/auth/youtube", channelAuthHandler.GetAuthURL)
		router.GET("/auth/youtube/callback", channelAuthHandler.HandleCallback)
	}

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	api.GET("/channels", channelHandler.List)
	api.POST("/channels", channelHandler.Create)
	api.GET("/channels/:channelId", channelHandler.Get)
	api.POST("/channels/:channelId/pause", channelHandler.Pause)
	api.POST("/channels/:channelId/resume", channelHandler.Resume)
	api.PATCH("/channels/:channelId/cadence", channelHandler.SetCadence)
	api.DELETE("/channels/:channelId", channelHandler.Remove)
	api.GET("/channels/:channelId/cycles", channelHandler.RecentCycles)

	api.GET("/fleet/health", healthHandler.FleetHealth)
	if fleetHub != nil {
		api.GET("/fleet/stream", fleetHub.Serve)
	}

	return router
}
