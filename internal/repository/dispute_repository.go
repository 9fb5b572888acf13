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
	ErrDisputeNotFound = errors.New("dispute not found")
	ErrDisputeNotOpen  = errors.New("dispute is not open")
)

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create сохраняет спор по заявке.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	return r.db.GetContext(ctx, d, `
		INSERT INTO disputes (id, job_request_id, member_id, apprentice_id, raised_by, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'open')
		RETURNING id, job_request_id, member_id, apprentice_id, raised_by, reason,
		          status, resolution, resolved_by, created_at, resolved_at
	`, d.ID, d.JobRequestID, d.MemberID, d.ApprenticeID, d.RaisedBy, d.Reason)
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// GetOpenByJob возвращает открытый спор по заявке, если он есть.
func (r *DisputeRepository) GetOpenByJob(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		SELECT * FROM disputes WHERE job_request_id = $1 AND status = 'open'
	`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByUser возвращает споры, в которых пользователь является стороной.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE member_id = $1 OR apprentice_id = $1 ORDER BY created_at DESC
	`, userID)
	return disputes, err
}

// ListByStatus возвращает споры по статусу, новые первыми.
func (r *DisputeRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, status, limit, offset)
	return disputes, err
}

// Resolve фиксирует решение администратора по открытому спору.
// Спор разрешается ровно один раз: условие в UPDATE отсекает повторы.
func (r *DisputeRepository) Resolve(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes
		SET status = 'resolved', resolution = $2, resolved_by = $3, resolved_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, id, resolution, resolvedBy)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrDisputeNotOpen
	}
	return nil
}

// Close закрывает открытый спор без решения.
func (r *DisputeRepository) Close(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = 'closed'
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrDisputeNotOpen
	}
	return nil
}

// CountOpen возвращает количество открытых споров.
func (r *DisputeRepository) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM disputes WHERE status = 'open'`)
	return count, err
}
