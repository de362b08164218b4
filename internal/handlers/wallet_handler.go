package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"escrow-service/pkg/common"
)

func (h *Handler) GetBalance(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	h.ok(c, h.Wallet.GetWalletBalance(c.Request.Context(), user.UserID), "success")
}

func (h *Handler) InitializeWallet(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	created, err := h.Wallet.InitializeWallet(c.Request.Context(), user.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"initialized": created}, "success")
}

func (h *Handler) GetHistory(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	page, limit := common.NormalizePage(queryInt(c, "page", 1), queryInt(c, "limit", common.DefaultPageSize))
	res, err := h.Wallet.GetPaymentHistory(c.Request.Context(), user.UserID, page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
