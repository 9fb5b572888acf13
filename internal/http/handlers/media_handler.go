package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/service"
)

// MediaHandler управляет загрузкой и выдачей файлов: CV и
// вложений к сдачам работ.
type MediaHandler struct {
	media *service.MediaService
}

func NewMediaHandler(media *service.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// Upload обрабатывает POST /media. Поле kind определяет назначение
// файла (cv или attachment) и набор разрешённых форматов.
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	kind := c.PostForm("kind")
	if kind == "" {
		common.RespondBadRequest(c, "поле kind обязательно")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}
	if fileHeader.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer src.Close()

	media, err := h.media.Upload(c.Request.Context(), userID, kind, fileHeader.Filename, src)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, media)
}

// Get обрабатывает GET /media/:id — метаданные файла.
func (h *MediaHandler) Get(c *gin.Context) {
	mediaID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	media, err := h.media.Get(c.Request.Context(), mediaID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, media)
}

// Download обрабатывает GET /media/:id/content — содержимое файла.
func (h *MediaHandler) Download(c *gin.Context) {
	mediaID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	media, file, err := h.media.OpenContent(c.Request.Context(), mediaID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", media.FileType)
	c.Header("Content-Disposition", "inline")
	http.ServeContent(c.Writer, c.Request, media.FilePath, media.CreatedAt, file)
}

// Delete обрабатывает DELETE /media/:id.
func (h *MediaHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	mediaID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.media.Delete(c.Request.Context(), mediaID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "файл удалён", nil)
}
