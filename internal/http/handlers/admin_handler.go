package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/service"
)

// AdminHandler предоставляет HTTP слой админ-панели.
// Все маршруты закрыты middleware.RequireRole("admin").
type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// GetDashboard обрабатывает GET /admin/dashboard.
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	stats, err := h.admin.GetDashboardStats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetActivityFeed обрабатывает GET /admin/activity.
func (h *AdminHandler) GetActivityFeed(c *gin.Context) {
	feed, err := h.admin.GetActivityFeed(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

// ListPendingWithdrawals обрабатывает GET /admin/withdrawals.
func (h *AdminHandler) ListPendingWithdrawals(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	withdrawals, err := h.admin.ListPendingWithdrawals(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, withdrawals)
}

// CompleteWithdrawal обрабатывает POST /admin/withdrawals/:id/complete.
func (h *AdminHandler) CompleteWithdrawal(c *gin.Context) {
	withdrawalID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.admin.CompleteWithdrawal(c.Request.Context(), withdrawalID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "вывод средств подтверждён", nil)
}

// RejectWithdrawal обрабатывает POST /admin/withdrawals/:id/reject.
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	withdrawalID, err := common.ParseUUIDParam(c, "id")
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

	if err := h.admin.RejectWithdrawal(c.Request.Context(), withdrawalID, req.Reason); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "вывод средств отклонён, средства возвращены", nil)
}
