package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/service"
)

// ApplicationHandler предоставляет HTTP слой для откликов.
type ApplicationHandler struct {
	applications *service.ApplicationService
}

func NewApplicationHandler(applications *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Apply обрабатывает POST /jobs/:id/applications.
func (h *ApplicationHandler) Apply(c *gin.Context) {
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
		CoverLetter *string `json:"cover_letter"`
	}
	// Тело опционально: отклик без письма допустим.
	_ = c.ShouldBindJSON(&req)

	app, err := h.applications.Apply(c.Request.Context(), jobID, userID, req.CoverLetter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// ListByJob обрабатывает GET /jobs/:id/applications.
func (h *ApplicationHandler) ListByJob(c *gin.Context) {
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

	apps, err := h.applications.ListByJob(c.Request.Context(), jobID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, apps)
}

// ListMine обрабатывает GET /applications/my.
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	apps, err := h.applications.ListMine(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, apps)
}

// Reject обрабатывает POST /applications/:id/reject.
func (h *ApplicationHandler) Reject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.applications.Reject(c.Request.Context(), applicationID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "отклик отклонён", nil)
}
