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
	ErrUpdateNotFound     = errors.New("job update not found")
	ErrSubmissionNotFound = errors.New("final submission not found")
)

type SubmissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// CreateUpdate сохраняет промежуточный отчёт с очередным номером версии.
// Номер выдаётся под блокировкой строки заявки: два одновременных отчёта
// по одной заявке получают разные последовательные номера.
func (r *SubmissionRepository) CreateUpdate(ctx context.Context, upd *models.JobUpdate) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var jobStatus string
		err := tx.GetContext(ctx, &jobStatus, `
			SELECT status FROM job_requests WHERE id = $1 FOR UPDATE
		`, upd.JobRequestID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrJobNotFound
			}
			return err
		}
		if jobStatus != models.JobStatusInProgress {
			return ErrJobNotInProgress
		}

		var version int
		err = tx.GetContext(ctx, &version, `
			SELECT COALESCE(MAX(version_number), 0) + 1 FROM job_updates WHERE job_request_id = $1
		`, upd.JobRequestID)
		if err != nil {
			return err
		}
		upd.VersionNumber = version

		return tx.GetContext(ctx, upd, `
			INSERT INTO job_updates (id, job_request_id, apprentice_id, version_number, summary, attachment_id, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending_review')
			RETURNING id, job_request_id, apprentice_id, version_number, summary, attachment_id,
			          status, feedback, created_at, updated_at
		`, upd.ID, upd.JobRequestID, upd.ApprenticeID, upd.VersionNumber, upd.Summary, upd.AttachmentID)
	})
}

// GetUpdateByID возвращает промежуточный отчёт по идентификатору.
func (r *SubmissionRepository) GetUpdateByID(ctx context.Context, id uuid.UUID) (*models.JobUpdate, error) {
	return common.GetByID[models.JobUpdate](ctx, r.db, "job_updates", id, ErrUpdateNotFound)
}

// ListUpdatesByJob возвращает отчёты по заявке в порядке версий.
func (r *SubmissionRepository) ListUpdatesByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobUpdate, error) {
	var updates []models.JobUpdate
	err := r.db.SelectContext(ctx, &updates, `
		SELECT * FROM job_updates WHERE job_request_id = $1 ORDER BY version_number ASC
	`, jobID)
	return updates, err
}

// SetUpdateFeedback записывает статус и отзыв участника по отчёту.
func (r *SubmissionRepository) SetUpdateFeedback(ctx context.Context, id uuid.UUID, status string, feedback *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_updates SET status = $2, feedback = $3, updated_at = NOW() WHERE id = $1
	`, id, status, feedback)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrUpdateNotFound
	}
	return nil
}

// AcknowledgePendingUpdates помечает просмотренными все ожидающие отчёты заявки.
func (r *SubmissionRepository) AcknowledgePendingUpdates(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE job_updates SET status = 'acknowledged', updated_at = NOW()
		WHERE job_request_id = $1 AND status = 'pending_review'
	`, jobID)
	return err
}

// CreateFinalSubmission сохраняет итоговую работу и переводит заявку на
// проверку. Ожидающие промежуточные отчёты закрываются той же транзакцией.
func (r *SubmissionRepository) CreateFinalSubmission(ctx context.Context, sub *models.FinalSubmission) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE job_requests
			SET status = 'pending_review', review_submitted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = 'in_progress' AND assigned_apprentice_id = $2
		`, sub.JobRequestID, sub.ApprenticeID)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return ErrJobNotInProgress
		}

		err = tx.GetContext(ctx, sub, `
			INSERT INTO final_submissions (id, job_request_id, apprentice_id, summary, attachment_id, status)
			VALUES ($1, $2, $3, $4, $5, 'pending_review')
			RETURNING id, job_request_id, apprentice_id, summary, attachment_id,
			          status, feedback, created_at, updated_at
		`, sub.ID, sub.JobRequestID, sub.ApprenticeID, sub.Summary, sub.AttachmentID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE job_updates SET status = 'acknowledged', updated_at = NOW()
			WHERE job_request_id = $1 AND status = 'pending_review'
		`, sub.JobRequestID)
		return err
	})
}

// GetFinalByID возвращает итоговую работу по идентификатору.
func (r *SubmissionRepository) GetFinalByID(ctx context.Context, id uuid.UUID) (*models.FinalSubmission, error) {
	return common.GetByID[models.FinalSubmission](ctx, r.db, "final_submissions", id, ErrSubmissionNotFound)
}

// ListFinalByJob возвращает итоговые работы по заявке, новые первыми.
func (r *SubmissionRepository) ListFinalByJob(ctx context.Context, jobID uuid.UUID) ([]models.FinalSubmission, error) {
	var subs []models.FinalSubmission
	err := r.db.SelectContext(ctx, &subs, `
		SELECT * FROM final_submissions WHERE job_request_id = $1 ORDER BY created_at DESC
	`, jobID)
	return subs, err
}

// SetFinalFeedback записывает статус и отзыв участника по итоговой работе.
func (r *SubmissionRepository) SetFinalFeedback(ctx context.Context, id uuid.UUID, status string, feedback *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE final_submissions SET status = $2, feedback = $3, updated_at = NOW() WHERE id = $1
	`, id, status, feedback)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// ApproveFinalWithPayout принимает итоговую работу, завершает заявку и
// выплачивает подмастерью сумму escrow одной транзакцией. Если заявка уже
// не на проверке, ни один из трёх шагов не применяется.
// Возвращает skipped=true, если выплата уже была проведена ранее.
func (r *SubmissionRepository) ApproveFinalWithPayout(ctx context.Context, submissionID uuid.UUID, feedback *string) (bool, error) {
	skipped := false
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var sub models.FinalSubmission
		err := tx.GetContext(ctx, &sub, `SELECT * FROM final_submissions WHERE id = $1 FOR UPDATE`, submissionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSubmissionNotFound
			}
			return err
		}

		var job models.JobRequest
		err = tx.GetContext(ctx, &job, `SELECT * FROM job_requests WHERE id = $1 FOR UPDATE`, sub.JobRequestID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrJobNotFound
			}
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE final_submissions SET status = 'approved', feedback = $2, updated_at = NOW() WHERE id = $1
		`, submissionID, feedback)
		if err != nil {
			return err
		}

		var paid int
		err = tx.GetContext(ctx, &paid, `
			SELECT COUNT(*) FROM wallet_transactions
			WHERE reference = $1 AND transaction_type = 'escrow_release'
		`, job.PayoutReference())
		if err != nil {
			return err
		}
		if paid > 0 {
			skipped = true
			_, err = tx.ExecContext(ctx, `
				UPDATE job_requests SET status = 'completed', updated_at = NOW() WHERE id = $1
			`, job.ID)
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE job_requests SET status = 'completed', completed_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = 'pending_review'
		`, job.ID)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return ErrJobNotPending
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallets (user_id, balance_ngn)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET balance_ngn = wallets.balance_ngn + $2, updated_at = NOW()
		`, sub.ApprenticeID, job.EscrowAmount)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (user_id, job_request_id, transaction_type, amount_ngn, reference, description)
			VALUES ($1, $2, 'escrow_release', $3, $4, 'Выплата за принятую итоговую работу')
		`, sub.ApprenticeID, job.ID, job.EscrowAmount, job.PayoutReference())
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE profiles
			SET total_earnings = total_earnings + $2, completed_jobs = completed_jobs + 1, updated_at = NOW()
			WHERE user_id = $1
		`, sub.ApprenticeID, job.EscrowAmount)
		return err
	})
	if err != nil {
		if common.IsUniqueViolation(err) {
			return true, nil
		}
		return false, err
	}
	return skipped, nil
}
