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

var (
	ErrApplicationNotFound   = errors.New("job application not found")
	ErrApplicationExists     = errors.New("job application already exists")
	ErrApplicationNotPending = errors.New("job application is not pending")
)

type ApplicationRepository struct {
	db *sqlx.DB
}

func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create сохраняет отклик подмастерья на заявку.
// Повторный отклик на ту же заявку упирается в уникальный индекс.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.JobApplication) error {
	err := r.db.GetContext(ctx, app, `
		INSERT INTO job_applications (id, job_request_id, apprentice_id, cover_letter, cv_media_id, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, job_request_id, apprentice_id, cover_letter, cv_media_id, status, created_at, updated_at
	`, app.ID, app.JobRequestID, app.ApprenticeID, app.CoverLetter, app.CVMediaID)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return ErrApplicationExists
		}
		return err
	}
	return nil
}

// GetByID возвращает отклик по идентификатору.
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	return common.GetByID[models.JobApplication](ctx, r.db, "job_applications", id, ErrApplicationNotFound)
}

// GetByJobAndApprentice возвращает отклик подмастерья на конкретную заявку.
func (r *ApplicationRepository) GetByJobAndApprentice(ctx context.Context, jobID, apprenticeID uuid.UUID) (*models.JobApplication, error) {
	var app models.JobApplication
	err := r.db.GetContext(ctx, &app, `
		SELECT * FROM job_applications WHERE job_request_id = $1 AND apprentice_id = $2
	`, jobID, apprenticeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

// ListByJob возвращает отклики на заявку.
func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error) {
	var apps []models.JobApplication
	err := r.db.SelectContext(ctx, &apps, `
		SELECT * FROM job_applications WHERE job_request_id = $1 ORDER BY created_at ASC
	`, jobID)
	return apps, err
}

// ListByApprentice возвращает отклики подмастерья.
func (r *ApplicationRepository) ListByApprentice(ctx context.Context, apprenticeID uuid.UUID) ([]models.JobApplication, error) {
	var apps []models.JobApplication
	err := r.db.SelectContext(ctx, &apps, `
		SELECT * FROM job_applications WHERE apprentice_id = $1 ORDER BY created_at DESC
	`, apprenticeID)
	return apps, err
}

// UpdateStatus меняет статус отклика. Разрешён переход только из pending.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_applications SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, status)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrApplicationNotPending
	}
	return nil
}
