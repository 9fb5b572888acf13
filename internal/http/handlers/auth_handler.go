package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/service"
	"github.com/craftlink/craftlink-backend/internal/validation"
)

// AuthHandler предоставляет HTTP слой для регистрации и логина.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register обрабатывает POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required"`
		Username     string `json:"username"`
		Role         string `json:"role" binding:"required"`
		DisplayName  string `json:"display_name"`
		ReferralCode string `json:"referral_code"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidatePassword(req.Password); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if _, ok := models.ValidRoles[req.Role]; !ok {
		common.RespondBadRequest(c, "роль должна быть member, apprentice или admin")
		return
	}

	meta := map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Username:     req.Username,
		Role:         req.Role,
		DisplayName:  req.DisplayName,
		ReferralCode: req.ReferralCode,
	}, meta)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    result.User,
		"profile": result.Profile,
		"tokens":  result.TokenPair,
	})
}

// Login обрабатывает POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if strings.TrimSpace(req.Password) == "" {
		common.RespondBadRequest(c, "пароль обязателен")
		return
	}

	meta := map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, meta)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    result.User,
		"profile": result.Profile,
		"tokens":  result.TokenPair,
	})
}

// Refresh обрабатывает POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	meta := map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}

	tokenPair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, meta)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokenPair})
}

// Logout обрабатывает POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	common.RespondSuccess(c, http.StatusOK, "выход выполнен", nil)
}

// GetMe обрабатывает GET /profile.
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	profile, err := h.auth.GetProfile(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"profile": profile,
	})
}

// UpdateMe обрабатывает PUT /profile.
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		DisplayName string   `json:"display_name" binding:"required"`
		Bio         *string  `json:"bio"`
		Skills      []string `json:"skills"`
		Location    *string  `json:"location"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile := &models.Profile{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Skills:      req.Skills,
		Location:    req.Location,
	}

	updated, err := h.auth.UpdateProfile(c.Request.Context(), profile)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, updated)
}

// GetUserProfile обрабатывает GET /users/:id — публичный профиль.
func (h *AuthHandler) GetUserProfile(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.auth.GetProfile(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
