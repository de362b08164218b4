package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"escrow-service/internal/services"
	"escrow-service/pkg/common"
)

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	var req services.RequestWithdrawalDTO
	if !h.bindJSON(c, &req) {
		return
	}
	req.UserID = user.UserID

	w, err := h.Withdrawals.RequestWithdrawal(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.Created(w, "Withdrawal request submitted"))
}

func (h *Handler) MyWithdrawals(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	list, err := h.Withdrawals.FetchUserWithdrawals(c.Request.Context(), user.UserID, c.Query("pending") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, list, "success")
}

func (h *Handler) ListWithdrawals(c *gin.Context) {
	list, err := h.Withdrawals.GetWithdrawalRequests(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, list, "success")
}

func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	admin, ok := h.mustUser(c)
	if !ok {
		return
	}
	w, err := h.Withdrawals.ApproveWithdrawal(c.Request.Context(), c.Param("id"), admin.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, w, "Withdrawal approved")
}

type rejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectWithdrawal(c *gin.Context) {
	admin, ok := h.mustUser(c)
	if !ok {
		return
	}
	var req rejectWithdrawalRequest
	if !h.bindJSON(c, &req) {
		return
	}
	w, err := h.Withdrawals.RejectWithdrawal(c.Request.Context(), c.Param("id"), admin.UserID, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, w, "Withdrawal rejected")
}
