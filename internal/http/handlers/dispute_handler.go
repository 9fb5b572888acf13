package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/service"
)

// DisputeHandler предоставляет HTTP слой для споров.
type DisputeHandler struct {
	disputes *service.DisputeService
}

func NewDisputeHandler(disputes *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// Raise обрабатывает POST /jobs/:id/disputes.
func (h *DisputeHandler) Raise(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.RaiseDispute(c.Request.Context(), jobID, userID, req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// Get обрабатывает GET /disputes/:id.
func (h *DisputeHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetDispute(c.Request.Context(), disputeID, userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListMine обрабатывает GET /disputes/my.
func (h *DisputeHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputes, err := h.disputes.ListMyDisputes(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// ListOpen обрабатывает GET /admin/disputes — открытые споры.
func (h *DisputeHandler) ListOpen(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	disputes, err := h.disputes.ListOpenDisputes(c.Request.Context(), role, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// Resolve обрабатывает POST /admin/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Resolution string `json:"resolution" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.disputes.ResolveDispute(c.Request.Context(), disputeID, userID, role, req.Resolution); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "спор разрешён", nil)
}

// Close обрабатывает POST /admin/disputes/:id/close.
func (h *DisputeHandler) Close(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.disputes.CloseDispute(c.Request.Context(), disputeID, role); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "спор закрыт", nil)
}
