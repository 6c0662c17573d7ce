package http

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"video-autopilot/domain/model"
	"video-autopilot/domain/repository"
	"video-autopilot/infrastructure/logger"
)

// IChannelAuthHandler runs the one-time OAuth consent flow that seeds a
// channel's credential. Day-to-day renewal is the refresher's job.
type IChannelAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	HandleCallback(ctx *gin.Context)
}

type ChannelAuthHandler struct {
	oauth2Config   *oauth2.Config
	channelRepo    repository.IChannel
	credentialRepo repository.ICredential
}

func NewChannelAuthHandler(oauth2Config *oauth2.Config, channelRepo repository.IChannel, credentialRepo repository.ICredential) IChannelAuthHandler {
	return &ChannelAuthHandler{
		oauth2Config:   oauth2Config,
		channelRepo:    channelRepo,
		credentialRepo: credentialRepo,
	}
}

// GetAuthURL handles GET /auth/youtube?channel_id=...
func (h *ChannelAuthHandler) GetAuthURL(ctx *gin.Context) {
	channelID := ctx.Query("channel_id")
	if channelID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "channel_id is required"})
		return
	}
	if _, err := h.channelRepo.GetByID(ctx.Request.Context(), channelID); err != nil {
		respondStateError(ctx, err)
		return
	}

	// The state carries the channel so the callback knows whose credential
	// this consent belongs to.
	state := channelID + ":" + generateRandomState()
	ctx.SetCookie("oauth_state", state, 600, "/", "", false, true)

	// AccessTypeOffline with forced consent is the only combination that
	// guarantees Google returns a refresh token.
	authURL := h.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))

	ctx.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// HandleCallback handles GET /auth/youtube/callback
func (h *ChannelAuthHandler) HandleCallback(ctx *gin.Context) {
	if errorParam := ctx.Query("error"); errorParam != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       fmt.Sprintf("OAuth error: %s", errorParam),
			"description": ctx.Query("error_description"),
		})
		return
	}

	state := ctx.Query("state")
	cookieState, err := ctx.Cookie("oauth_state")
	if state == "" || err != nil || state != cookieState {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":  "state mismatch",
			"action": "Visit /auth/youtube to start over",
		})
		return
	}
	channelID, _, ok := strings.Cut(state, ":")
	if !ok || channelID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "state missing channel"})
		return
	}

	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "authorization code not found"})
		return
	}

	token, err := h.oauth2Config.Exchange(ctx.Request.Context(), code)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to exchange code for token",
			"message": err.Error(),
		})
		return
	}

	cred := &model.Credential{
		ChannelID:    channelID,
		Provider:     "youtube",
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if err := h.credentialRepo.Replace(ctx.Request.Context(), cred); err != nil {
		logger.GetLogger().
			WithField("channelId", channelID).
			WithField("error", err).
			Error("Error while storing credential")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.SetCookie("oauth_state", "", -1, "/", "", false, true)
	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"channel_id": channelID,
		"expiry":     token.Expiry,
		"message":    "Channel authorized. The refresher keeps this credential fresh from here on.",
	})
}

func generateRandomState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}
