package handlers

import (
	"github.com/gin-gonic/gin"

	"escrow-service/pkg/apperrors"
)

func (h *Handler) RequestCompletion(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	app, err := h.Disputes.RequestCompletion(c.Request.Context(), c.Param("id"), user.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, app, "Completion requested")
}

func (h *Handler) ApproveCompletion(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	res, err := h.Disputes.ApproveCompletion(c.Request.Context(), c.Param("id"), user.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, res, "Payment released")
}

type disputeCompletionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) DisputeCompletion(c *gin.Context) {
	user, ok := h.mustUser(c)
	if !ok {
		return
	}
	var req disputeCompletionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	app, err := h.Disputes.DisputeCompletion(c.Request.Context(), c.Param("id"), user.UserID, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, app, "Completion disputed")
}

func (h *Handler) ListDisputes(c *gin.Context) {
	list, err := h.Disputes.ListDisputes(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, list, "success")
}

type resolveDisputeRequest struct {
	Favor string `json:"favor" binding:"required"`
	Notes string `json:"notes"`
}

func (h *Handler) ResolveDispute(c *gin.Context) {
	admin, ok := h.mustUser(c)
	if !ok {
		return
	}
	var req resolveDisputeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	appID := c.Param("applicationId")
	switch req.Favor {
	case "worker":
		res, err := h.Disputes.ResolveInFavorOfWorker(ctx, appID, admin.UserID, req.Notes)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.ok(c, res, "Dispute resolved in favor of worker")
	case "employer":
		res, err := h.Disputes.ResolveInFavorOfEmployer(ctx, appID, admin.UserID, req.Notes)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.ok(c, res, "Dispute resolved in favor of employer")
	default:
		h.fail(c, apperrors.Validation("favor must be one of: worker employer"))
	}
}
