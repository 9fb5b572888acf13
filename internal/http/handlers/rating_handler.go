package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/service"
)

// RatingHandler предоставляет HTTP слой для оценок исполнителей.
type RatingHandler struct {
	ratings *service.RatingService
}

func NewRatingHandler(ratings *service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// Rate обрабатывает POST /jobs/:id/rating.
func (h *RatingHandler) Rate(c *gin.Context) {
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
		Rating  int     `json:"rating" binding:"required"`
		Comment *string `json:"comment"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	rating, err := h.ratings.RateApprentice(c.Request.Context(), jobID, userID, req.Rating, req.Comment)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, rating)
}

// CanRate обрабатывает GET /jobs/:id/rating/can-rate.
func (h *RatingHandler) CanRate(c *gin.Context) {
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

	canRate, err := h.ratings.CanRate(c.Request.Context(), jobID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"can_rate": canRate})
}

// GetDetails обрабатывает GET /users/:id/rating — сводка оценок исполнителя.
func (h *RatingHandler) GetDetails(c *gin.Context) {
	apprenticeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	details, err := h.ratings.GetDetails(c.Request.Context(), apprenticeID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// List обрабатывает GET /users/:id/ratings.
func (h *RatingHandler) List(c *gin.Context) {
	apprenticeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	ratings, err := h.ratings.ListRatings(c.Request.Context(), apprenticeID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ratings)
}

// Update обрабатывает PUT /ratings/:id.
func (h *RatingHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	ratingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Rating  int     `json:"rating" binding:"required"`
		Comment *string `json:"comment"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.ratings.UpdateRating(c.Request.Context(), ratingID, userID, req.Rating, req.Comment); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "оценка обновлена", nil)
}

// Delete обрабатывает DELETE /ratings/:id.
func (h *RatingHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	ratingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.ratings.DeleteRating(c.Request.Context(), ratingID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "оценка удалена", nil)
}
