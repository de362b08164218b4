package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-service/internal/services"
	"escrow-service/pkg/apperrors"
)

func (h *Handler) InitializePayFast(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	var req services.InitPayFastDTO
	if !h.bindJSON(c, &req) {
		return
	}
	req.UserID = user.UserID

	checkout, err := h.PayFast.Initialize(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, checkout, "Checkout created")
}

// PayFastNotify receives the ITN. PayFast only needs a 200, so failures are
// reported in the body and never as an error status.
func (h *Handler) PayFastNotify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.Logger.Warn("unreadable PayFast notification", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true, "processed": false})
		return
	}
	processed := h.PayFast.HandleNotification(c.Request.Context(), services.Notification{
		Values:   c.Request.PostForm,
		SourceIP: c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"received": true, "processed": processed})
}

func (h *Handler) VerifyPayFast(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	var req services.VerifyPayFastDTO
	if !h.bindJSON(c, &req) {
		return
	}
	req.UserID = user.UserID

	res, err := h.PayFast.VerifyFallback(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) InitializeTradeSafe(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	var req services.InitTradeSafeDTO
	if !h.bindJSON(c, &req) {
		return
	}
	req.EmployerID = user.UserID

	checkout, err := h.TradeSafe.Initialize(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, checkout, "Transaction created")
}

type verifyTradeSafeRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
}

func (h *Handler) VerifyTradeSafe(c *gin.Context) {
	var req verifyTradeSafeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.TradeSafe.Verify(c.Request.Context(), req.TransactionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) QuoteFees(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		h.fail(c, apperrors.Validation("amount must be a number"))
		return
	}
	quote, err := h.Fees.Quote(c.Request.Context(), amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, quote, "success")
}
