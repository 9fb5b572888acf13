package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/repository/common"
)

var ErrMediaNotFound = errors.New("media file not found")

type MediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create сохраняет метаданные загруженного файла.
func (r *MediaRepository) Create(ctx context.Context, m *models.MediaFile) error {
	return r.db.GetContext(ctx, m, `
		INSERT INTO media_files (id, user_id, kind, file_path, file_type, file_size, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, kind, file_path, file_type, file_size, is_public, created_at
	`, m.ID, m.UserID, m.Kind, m.FilePath, m.FileType, m.FileSize, m.IsPublic)
}

// GetByID возвращает метаданные файла.
func (r *MediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error) {
	return common.GetByID[models.MediaFile](ctx, r.db, "media_files", id, ErrMediaNotFound)
}

// GetLatestCVByUser возвращает последний загруженный CV пользователя.
func (r *MediaRepository) GetLatestCVByUser(ctx context.Context, userID uuid.UUID) (*models.MediaFile, error) {
	var m models.MediaFile
	err := r.db.GetContext(ctx, &m, `
		SELECT * FROM media_files WHERE user_id = $1 AND kind = 'cv'
		ORDER BY created_at DESC LIMIT 1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Delete удаляет метаданные файла его владельца.
func (r *MediaRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM media_files WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrMediaNotFound
	}
	return nil
}
