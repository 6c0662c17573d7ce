package http

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"video-autopilot/domain/dto"
	"video-autopilot/domain/model"
	"video-autopilot/domain/repository"
	"video-autopilot/infrastructure/logger"
	"video-autopilot/usecase"
)

type IChannelHandler interface {
	List(ctx *gin.Context)
	Create(ctx *gin.Context)
	Get(ctx *gin.Context)
	Pause(ctx *gin.Context)
	Resume(ctx *gin.Context)
	SetCadence(ctx *gin.Context)
	Remove(ctx *gin.Context)
	RecentCycles(ctx *gin.Context)
}

// CadenceBounds clamps operator-supplied intervals to a sane range.
type CadenceBounds struct {
	DefaultMinutes int
	MinMinutes     int
	MaxMinutes     int
}

type ChannelHandler struct {
	channelRepo repository.IChannel
	auditRepo   repository.ICycleAudit
	supervisor  usecase.IFleetSupervisor
	bounds      CadenceBounds
}

func NewChannelHandler(channelRepo repository.IChannel, auditRepo repository.ICycleAudit, supervisor usecase.IFleetSupervisor, bounds CadenceBounds) IChannelHandler {
	return &ChannelHandler{
		channelRepo: channelRepo,
		auditRepo:   auditRepo,
		supervisor:  supervisor,
		bounds:      bounds,
	}
}

func (h *ChannelHandler) List(ctx *gin.Context) {
	if !h.repoReady(ctx) {
		return
	}
	channels, err := h.channelRepo.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	statuses := make([]dto.ChannelStatus, 0, len(channels))
	for _, ch := range channels {
		statuses = append(statuses, toStatus(ch))
	}
	ctx.JSON(http.StatusOK, gin.H{"channels": statuses})
}

func (h *ChannelHandler) Create(ctx *gin.Context) {
	if !h.repoReady(ctx) {
		return
	}
	var req dto.CreateChannelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	interval := req.IntervalMinutes
	if interval == 0 {
		interval = h.bounds.DefaultMinutes
	}
	if interval < h.bounds.MinMinutes || interval > h.bounds.MaxMinutes {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "intervalMinutes out of range",
			"min":   h.bounds.MinMinutes,
			"max":   h.bounds.MaxMinutes,
		})
		return
	}

	providers := req.Providers
	if len(providers) == 0 {
		providers = []string{"youtube"}
	}

	ch := &model.Channel{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Theme:           req.Theme,
		Providers:       providers,
		IntervalMinutes: interval,
		State:           model.ChannelActive,
	}
	if err := h.channelRepo.Create(ctx.Request.Context(), ch); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while creating channel")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"channel": toStatus(ch)})
}

func (h *ChannelHandler) Get(ctx *gin.Context) {
	ch, ok := h.load(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"channel": toStatus(ch)})
}

func (h *ChannelHandler) Pause(ctx *gin.Context) {
	if h.supervisor == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "fleet engine not running"})
		return
	}
	channelID := ctx.Param("channelId")
	if err := h.supervisor.Pause(ctx.Request.Context(), channelID); err != nil {
		respondStateError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"channel_id": channelID, "state": string(model.ChannelDisabled)})
}

func (h *ChannelHandler) Resume(ctx *gin.Context) {
	if h.supervisor == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "fleet engine not running"})
		return
	}
	channelID := ctx.Param("channelId")
	if err := h.supervisor.Resume(ctx.Request.Context(), channelID); err != nil {
		respondStateError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"channel_id": channelID, "state": string(model.ChannelActive)})
}

func (h *ChannelHandler) SetCadence(ctx *gin.Context) {
	ch, ok := h.load(ctx)
	if !ok {
		return
	}
	var req dto.CadenceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.IntervalMinutes < h.bounds.MinMinutes || req.IntervalMinutes > h.bounds.MaxMinutes {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "intervalMinutes out of range",
			"min":   h.bounds.MinMinutes,
			"max":   h.bounds.MaxMinutes,
		})
		return
	}
	if err := h.channelRepo.SetInterval(ctx.Request.Context(), ch.ID, req.IntervalMinutes); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"channel_id": ch.ID, "interval_minutes": req.IntervalMinutes})
}

func (h *ChannelHandler) Remove(ctx *gin.Context) {
	ch, ok := h.load(ctx)
	if !ok {
		return
	}
	if err := h.channelRepo.Remove(ctx.Request.Context(), ch.ID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"channel_id": ch.ID, "removed": true})
}

// RecentCycles returns the channel's audit trail when Mongo is configured.
func (h *ChannelHandler) RecentCycles(ctx *gin.Context) {
	ch, ok := h.load(ctx)
	if !ok {
		return
	}
	audits, err := h.auditRepo.RecentByChannel(ctx.Request.Context(), ch.ID, 20)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if audits == nil {
		audits = []*model.CycleAudit{}
	}
	ctx.JSON(http.StatusOK, gin.H{"channel_id": ch.ID, "cycles": audits})
}

// repoReady rejects requests with 503 when no persistence backend came up.
func (h *ChannelHandler) repoReady(ctx *gin.Context) bool {
	if h.channelRepo == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "no persistence backend available"})
		return false
	}
	return true
}

func (h *ChannelHandler) load(ctx *gin.Context) (*model.Channel, bool) {
	if !h.repoReady(ctx) {
		return nil, false
	}
	channelID := ctx.Param("channelId")
	ch, err := h.channelRepo.GetByID(ctx.Request.Context(), channelID)
	if err != nil {
		respondStateError(ctx, err)
		return nil, false
	}
	return ch, true
}

func respondStateError(ctx *gin.Context, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func toStatus(ch *model.Channel) dto.ChannelStatus {
	return dto.ChannelStatus{
		ID:                  ch.ID,
		Name:                ch.Name,
		Theme:               ch.Theme,
		State:               string(ch.State),
		IntervalMinutes:     ch.IntervalMinutes,
		LastRunAt:           ch.LastRunAt,
		ConsecutiveFailures: ch.ConsecutiveFailures,
		Providers:           ch.Providers,
	}
}
