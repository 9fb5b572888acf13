package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/service"
)

// JobHandler предоставляет HTTP слой для заявок на работу.
type JobHandler struct {
	jobs *service.JobService
}

func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Create обрабатывает POST /jobs. Стоимость сразу замораживается в escrow.
func (h *JobHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Title       string  `json:"title" binding:"required"`
		Description string  `json:"description" binding:"required"`
		FixedPrice  float64 `json:"fixed_price" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), service.CreateJobInput{
		ClientID:    userID,
		Title:       req.Title,
		Description: req.Description,
		FixedPrice:  req.FixedPrice,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// Get обрабатывает GET /jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// List обрабатывает GET /jobs. Фильтр по статусу опционален.
func (h *JobHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	status := c.Query("status")

	jobs, err := h.jobs.ListJobs(c.Request.Context(), status, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// ListMy обрабатывает GET /jobs/my — заявки текущего пользователя.
func (h *JobHandler) ListMy(c *gin.Context) {
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

	jobs, err := h.jobs.ListMyJobs(c.Request.Context(), userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// AcceptApplication обрабатывает POST /jobs/:id/applications/:applicationId/accept.
func (h *JobHandler) AcceptApplication(c *gin.Context) {
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
	applicationID, err := common.ParseUUIDParam(c, "applicationId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.jobs.AcceptApplication(c.Request.Context(), jobID, applicationID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "исполнитель назначен", nil)
}

// Complete обрабатывает POST /jobs/:id/complete — исполнитель
// отправляет работу на финальную проверку.
func (h *JobHandler) Complete(c *gin.Context) {
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

	if err := h.jobs.CompleteJob(c.Request.Context(), jobID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "работа отправлена на проверку", nil)
}

// ApproveReview обрабатывает POST /jobs/:id/review/approve —
// заказчик принимает работу, исполнителю выплачивается escrow.
func (h *JobHandler) ApproveReview(c *gin.Context) {
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

	if err := h.jobs.ApproveReview(c.Request.Context(), jobID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "работа принята, выплата выполнена", nil)
}

// RejectReview обрабатывает POST /jobs/:id/review/reject —
// заказчик возвращает работу на доработку.
func (h *JobHandler) RejectReview(c *gin.Context) {
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

	if err := h.jobs.RejectReview(c.Request.Context(), jobID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "работа возвращена на доработку", nil)
}

// Delete обрабатывает DELETE /jobs/:id — удаление неназначенной
// заявки с возвратом escrow.
func (h *JobHandler) Delete(c *gin.Context) {
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

	if err := h.jobs.DeleteJob(c.Request.Context(), jobID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "заявка удалена, средства возвращены", nil)
}
