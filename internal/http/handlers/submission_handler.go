package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/service"
)

// SubmissionHandler предоставляет HTTP слой для промежуточных
// обновлений и финальных сдач работ.
type SubmissionHandler struct {
	submissions *service.SubmissionService
}

func NewSubmissionHandler(submissions *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

type submitWorkRequest struct {
	Summary      string     `json:"summary" binding:"required"`
	AttachmentID *uuid.UUID `json:"attachment_id"`
}

type reviewRequest struct {
	FeedbackType string  `json:"feedback_type" binding:"required"`
	Feedback     *string `json:"feedback"`
}

// SubmitUpdate обрабатывает POST /jobs/:id/updates.
func (h *SubmissionHandler) SubmitUpdate(c *gin.Context) {
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

	var req submitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	update, err := h.submissions.SubmitUpdate(c.Request.Context(), jobID, userID, req.Summary, req.AttachmentID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, update)
}

// ListUpdates обрабатывает GET /jobs/:id/updates.
func (h *SubmissionHandler) ListUpdates(c *gin.Context) {
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

	updates, err := h.submissions.ListUpdates(c.Request.Context(), jobID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, updates)
}

// ReviewUpdate обрабатывает POST /updates/:id/review.
func (h *SubmissionHandler) ReviewUpdate(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	updateID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.submissions.ReviewUpdate(c.Request.Context(), updateID, userID, req.FeedbackType, req.Feedback); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "отзыв сохранён", nil)
}

// SubmitFinal обрабатывает POST /jobs/:id/final —
// финальная сдача переводит заявку на проверку заказчику.
func (h *SubmissionHandler) SubmitFinal(c *gin.Context) {
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

	var req submitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	submission, err := h.submissions.SubmitFinal(c.Request.Context(), jobID, userID, req.Summary, req.AttachmentID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// ListFinal обрабатывает GET /jobs/:id/final.
func (h *SubmissionHandler) ListFinal(c *gin.Context) {
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

	submissions, err := h.submissions.ListFinal(c.Request.Context(), jobID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, submissions)
}

// ReviewFinal обрабатывает POST /final/:id/review —
// решение заказчика по финальной сдаче. Принятие запускает выплату.
func (h *SubmissionHandler) ReviewFinal(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	submissionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.submissions.ReviewFinal(c.Request.Context(), submissionID, userID, req.FeedbackType, req.Feedback); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "решение сохранено", nil)
}
