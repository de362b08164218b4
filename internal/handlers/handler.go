package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escrow-service/internal/services"
	"escrow-service/pkg/apperrors"
	"escrow-service/pkg/common"
)

// Handler exposes the escrow services over HTTP.
type Handler struct {
	Wallet      *services.WalletService
	Fees        *services.FeeService
	PayFast     *services.PayFastService
	TradeSafe   *services.TradeSafeService
	Withdrawals *services.WithdrawalService
	Disputes    *services.DisputeService
	Logger      *zap.Logger
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	if logger != nil {
		apperrors.LogError(logger, err, "request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()))
	}
	c.AbortWithStatusJSON(status, common.Failure(status, apperrors.CodeOf(err), apperrors.PublicMessage(err)))
}

func (h *Handler) fail(c *gin.Context, err error) {
	respondError(c, h.Logger, err)
}

func (h *Handler) ok(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, common.Success(data, message))
}

// bindJSON decodes the body into req, answering 400 on failure.
func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, apperrors.Validation("Invalid request body"))
		return false
	}
	return true
}

// mustUser returns the authenticated caller or answers 401.
func (h *Handler) mustUser(c *gin.Context) (AuthUser, bool) {
	user, ok := currentUser(c)
	if !ok || user.UserID == "" {
		h.fail(c, apperrors.Unauthenticated("Authentication required"))
		return AuthUser{}, false
	}
	return user, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
