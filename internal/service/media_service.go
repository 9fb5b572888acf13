package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/craftlink/craftlink-backend/internal/logger"
	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/pkg/apperror"
	"github.com/craftlink/craftlink-backend/internal/repository"
)

// MediaRepository описывает зависимости MediaService от слоя хранилища.
type MediaRepository interface {
	Create(ctx context.Context, m *models.MediaFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error)
	GetLatestCVByUser(ctx context.Context, userID uuid.UUID) (*models.MediaFile, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// FileStore описывает файловое хранилище загрузок.
type FileStore interface {
	Save(ctx context.Context, userID uuid.UUID, kind, originalName string, r io.Reader) (string, string, int64, error)
	Open(relativePath string) (*os.File, error)
	Delete(ctx context.Context, relativePath string) error
}

// UserRepoForMedia связывает загруженное CV с профилем.
type UserRepoForMedia interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// MediaService управляет загрузками файлов.
type MediaService struct {
	repo  MediaRepository
	store FileStore
	users UserRepoForMedia
}

func NewMediaService(repo MediaRepository, store FileStore, users UserRepoForMedia) *MediaService {
	return &MediaService{repo: repo, store: store, users: users}
}

// Upload сохраняет файл и его метаданные. CV дополнительно
// привязывается к профилю пользователя.
func (s *MediaService) Upload(ctx context.Context, userID uuid.UUID, kind, originalName string, r io.Reader) (*models.MediaFile, error) {
	if kind != models.MediaKindCV && kind != models.MediaKindAttachment {
		return nil, apperror.New(apperror.ErrCodeValidation, "недопустимое назначение файла")
	}

	relPath, mime, size, err := s.store.Save(ctx, userID, kind, originalName, r)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "файл не прошёл проверку")
	}

	media := &models.MediaFile{
		ID:       uuid.New(),
		UserID:   &userID,
		Kind:     kind,
		FilePath: relPath,
		FileType: mime,
		FileSize: size,
	}

	if err := s.repo.Create(ctx, media); err != nil {
		_ = s.store.Delete(ctx, relPath)
		return nil, fmt.Errorf("media service: сохранение метаданных: %w", err)
	}

	if kind == models.MediaKindCV {
		s.linkCVToProfile(ctx, userID, media.ID)
	}

	return media, nil
}

// Get возвращает метаданные файла.
func (s *MediaService) Get(ctx context.Context, id uuid.UUID) (*models.MediaFile, error) {
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "файл не найден")
		}
		return nil, err
	}
	return media, nil
}

// OpenContent открывает содержимое файла для отдачи клиенту.
func (s *MediaService) OpenContent(ctx context.Context, id uuid.UUID) (*models.MediaFile, *os.File, error) {
	media, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.store.Open(media.FilePath)
	if err != nil {
		return nil, nil, apperror.New(apperror.ErrCodeNotFound, "содержимое файла недоступно")
	}
	return media, f, nil
}

// Delete удаляет файл пользователя вместе с содержимым.
func (s *MediaService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperror.New(apperror.ErrCodeNotFound, "файл не найден")
	}
	if media.UserID == nil || *media.UserID != userID {
		return apperror.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("media service: удаление метаданных: %w", err)
	}
	if err := s.store.Delete(ctx, media.FilePath); err != nil {
		logger.Log.WithField("media_id", id).WithError(err).Warn("media service: файл не удалён из хранилища")
	}
	return nil
}

// linkCVToProfile записывает идентификатор CV в профиль.
// Неудача не отменяет загрузку.
func (s *MediaService) linkCVToProfile(ctx context.Context, userID, mediaID uuid.UUID) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		logger.Log.WithField("user_id", userID).WithError(err).Warn("media service: профиль для привязки CV не найден")
		return
	}
	profile.CVMediaID = &mediaID
	if err := s.users.UpsertProfile(ctx, profile); err != nil {
		logger.Log.WithField("user_id", userID).WithError(err).Warn("media service: не удалось привязать CV к профилю")
	}
}
