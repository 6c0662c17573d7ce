package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"video-autopilot/domain/dto"
	"video-autopilot/infrastructure/utils"
)

type IOperatorHandler interface {
	Token(ctx *gin.Context)
}

// OperatorHandler exchanges the shared operator secret for a bearer token.
type OperatorHandler struct {
	operatorSecret string
	signingKey     string
}

func NewOperatorHandler(operatorSecret, signingKey string) IOperatorHandler {
	return &OperatorHandler{operatorSecret: operatorSecret, signingKey: signingKey}
}

func (h *OperatorHandler) Token(ctx *gin.Context) {
	var req dto.TokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if h.operatorSecret == "" ||
		subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.operatorSecret)) != 1 {
		ctx.JSON(http.StatusUnauthorized, dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"})
		return
	}

	now := utils.GetCurrentTime()
	token, err := utils.GenerateToken(map[string]interface{}{
		"name": req.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(12 * time.Hour).Unix(),
	}, h.signingKey)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int((12 * time.Hour).Seconds())})
}
