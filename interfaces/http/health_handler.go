package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"video-autopilot/usecase"
)

type IHealthHandler interface {
	Liveness(ctx *gin.Context)
	FleetHealth(ctx *gin.Context)
}

type HealthHandler struct {
	supervisor usecase.IFleetSupervisor
}

func NewHealthHandler(supervisor usecase.IFleetSupervisor) IHealthHandler {
	return &HealthHandler{supervisor: supervisor}
}

func (h *HealthHandler) Liveness(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) FleetHealth(ctx *gin.Context) {
	if h.supervisor == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "fleet engine not running"})
		return
	}
	health, err := h.supervisor.Health(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, health)
}
