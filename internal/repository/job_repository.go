package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/repository/common"
)

var (
	ErrJobNotFound      = errors.New("job request not found")
	ErrJobNotOpen       = errors.New("job request is not open")
	ErrJobNotInProgress = errors.New("job request is not in progress")
	ErrJobNotPending    = errors.New("job request is not pending review")
	ErrJobNotDeletable  = errors.New("job request cannot be deleted")
)

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateWithEscrow создаёт заявку и замораживает средства участника.
// Списание, запись журнала и вставка заявки выполняются одной транзакцией:
// при нехватке средств или любой ошибке вставки строка заявки не появляется,
// а баланс остаётся нетронутым.
func (r *JobRepository) CreateWithEscrow(ctx context.Context, job *models.JobRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Блокируем кошелёк участника и проверяем баланс.
	var wallet models.Wallet
	err = tx.GetContext(ctx, &wallet, `SELECT user_id, balance_ngn, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`, job.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInsufficientFunds
		}
		return err
	}
	if wallet.BalanceNGN < job.EscrowAmount {
		return ErrInsufficientFunds
	}

	// Списываем сумму escrow.
	_, err = tx.ExecContext(ctx, `
		UPDATE wallets SET balance_ngn = balance_ngn - $2, updated_at = NOW() WHERE user_id = $1
	`, job.ClientID, job.EscrowAmount)
	if err != nil {
		return err
	}

	err = tx.GetContext(ctx, job, `
		INSERT INTO job_requests (id, client_id, title, description, fixed_price, escrow_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'open')
		RETURNING id, client_id, assigned_apprentice_id, title, description, fixed_price, escrow_amount,
		          status, completed_at, review_submitted_at, created_at, updated_at
	`, job.ID, job.ClientID, job.Title, job.Description, job.FixedPrice, job.EscrowAmount)
	if err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (user_id, job_request_id, transaction_type, amount_ngn, reference, description)
		VALUES ($1, $2, 'escrow_hold', $3, $4, 'Заморозка средств по заявке')
	`, job.ClientID, job.ID, -job.EscrowAmount, job.EscrowReference())
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID возвращает заявку по идентификатору.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	return common.GetByID[models.JobRequest](ctx, r.db, "job_requests", id, ErrJobNotFound)
}

// List возвращает заявки по статусу с пагинацией. Пустой статус — все заявки.
func (r *JobRepository) List(ctx context.Context, status string, limit, offset int) ([]models.JobRequest, error) {
	var jobs []models.JobRequest
	if status == "" {
		err := r.db.SelectContext(ctx, &jobs, `
			SELECT * FROM job_requests ORDER BY created_at DESC LIMIT $1 OFFSET $2
		`, limit, offset)
		return jobs, err
	}
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM job_requests WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, status, limit, offset)
	return jobs, err
}

// ListByClient возвращает заявки участника.
func (r *JobRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.JobRequest, error) {
	var jobs []models.JobRequest
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM job_requests WHERE client_id = $1 ORDER BY created_at DESC
	`, clientID)
	return jobs, err
}

// ListByApprentice возвращает заявки, назначенные подмастерью.
func (r *JobRepository) ListByApprentice(ctx context.Context, apprenticeID uuid.UUID) ([]models.JobRequest, error) {
	var jobs []models.JobRequest
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM job_requests WHERE assigned_apprentice_id = $1 ORDER BY created_at DESC
	`, apprenticeID)
	return jobs, err
}

// AcceptApplication назначает подмастерье на заявку и принимает его отклик.
// Назначение происходит ровно один раз: условие в UPDATE гарантирует,
// что заявка открыта и исполнитель ещё не выбран.
func (r *JobRepository) AcceptApplication(ctx context.Context, jobID, applicationID, apprenticeID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE job_requests
		SET status = 'in_progress', assigned_apprentice_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'open' AND assigned_apprentice_id IS NULL
	`, jobID, apprenticeID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrJobNotOpen
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE job_applications SET status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND job_request_id = $2 AND status = 'pending'
	`, applicationID, jobID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrApplicationNotPending
	}

	// Остальные отклики автоматически отклоняются.
	_, err = tx.ExecContext(ctx, `
		UPDATE job_applications SET status = 'rejected', updated_at = NOW()
		WHERE job_request_id = $1 AND id <> $2 AND status = 'pending'
	`, jobID, applicationID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// MarkPendingReview переводит заявку на проверку участником.
// Денежных движений нет.
func (r *JobRepository) MarkPendingReview(ctx context.Context, jobID, apprenticeID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_requests
		SET status = 'pending_review', completed_at = NOW(), review_submitted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress' AND assigned_apprentice_id = $2
	`, jobID, apprenticeID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrJobNotInProgress
	}
	return nil
}

// ApproveWithPayout завершает заявку и выплачивает подмастерью сумму escrow.
// Возвращает skipped=true, если выплата по этой заявке уже проведена:
// тогда заявка лишь помечается завершённой, повторного зачисления нет.
// Обновление статуса, зачисление, запись журнала и счётчики профиля
// выполняются одной транзакцией.
func (r *JobRepository) ApproveWithPayout(ctx context.Context, jobID uuid.UUID) (bool, error) {
	skipped := false
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var job models.JobRequest
		err := tx.GetContext(ctx, &job, `SELECT * FROM job_requests WHERE id = $1 FOR UPDATE`, jobID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrJobNotFound
			}
			return err
		}

		// Проверка идемпотентности по ключу выплаты.
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
			`, jobID)
			return err
		}

		if job.Status != models.JobStatusPendingReview {
			return ErrJobNotPending
		}
		if job.AssignedApprenticeID == nil {
			return ErrJobNotInProgress
		}
		apprenticeID := *job.AssignedApprenticeID

		_, err = tx.ExecContext(ctx, `
			UPDATE job_requests SET status = 'completed', updated_at = NOW() WHERE id = $1
		`, jobID)
		if err != nil {
			return err
		}

		// Зачисляем подмастерью сумму escrow.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallets (user_id, balance_ngn)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET balance_ngn = wallets.balance_ngn + $2, updated_at = NOW()
		`, apprenticeID, job.EscrowAmount)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (user_id, job_request_id, transaction_type, amount_ngn, reference, description)
			VALUES ($1, $2, 'escrow_release', $3, $4, 'Выплата за выполненную работу')
		`, apprenticeID, jobID, job.EscrowAmount, job.PayoutReference())
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE profiles
			SET total_earnings = total_earnings + $2, completed_jobs = completed_jobs + 1, updated_at = NOW()
			WHERE user_id = $1
		`, apprenticeID, job.EscrowAmount)
		return err
	})
	if err != nil {
		// Гонка двух одобрений: вторая транзакция упирается в уникальный
		// индекс по ключу выплаты — считаем её уже проведённой.
		if common.IsUniqueViolation(err) {
			return true, nil
		}
		return false, err
	}
	return skipped, nil
}

// RejectReview возвращает заявку в работу и возвращает escrow участнику.
func (r *JobRepository) RejectReview(ctx context.Context, jobID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var job models.JobRequest
		err := tx.GetContext(ctx, &job, `SELECT * FROM job_requests WHERE id = $1 FOR UPDATE`, jobID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrJobNotFound
			}
			return err
		}
		if job.Status != models.JobStatusPendingReview {
			return ErrJobNotPending
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE job_requests
			SET status = 'in_progress', completed_at = NULL, review_submitted_at = NULL, updated_at = NOW()
			WHERE id = $1
		`, jobID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE wallets SET balance_ngn = balance_ngn + $2, updated_at = NOW() WHERE user_id = $1
		`, job.ClientID, job.EscrowAmount)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (user_id, job_request_id, transaction_type, amount_ngn, reference, description)
			VALUES ($1, $2, 'escrow_refund', $3, $4, 'Возврат средств после отклонения работы')
		`, job.ClientID, jobID, job.EscrowAmount, job.RefundReference())
		return err
	})
}

// DeleteWithRefund удаляет открытую неназначенную заявку вместе с зависимыми
// записями и возвращает escrow участнику. Возврат выполняется только после
// подтверждённого удаления строки заявки; иначе вся транзакция откатывается.
func (r *JobRepository) DeleteWithRefund(ctx context.Context, jobID, clientID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var job models.JobRequest
		err := tx.GetContext(ctx, &job, `SELECT * FROM job_requests WHERE id = $1 FOR UPDATE`, jobID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrJobNotFound
			}
			return err
		}
		if job.ClientID != clientID {
			return ErrJobNotDeletable
		}

		// Сначала зависимые записи.
		if _, err = tx.ExecContext(ctx, `DELETE FROM job_applications WHERE job_request_id = $1`, jobID); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM disputes WHERE job_request_id = $1`, jobID); err != nil {
			return err
		}
		// Идентификатор заявки лежит внутри объекта data уведомления.
		if _, err = tx.ExecContext(ctx, `
			DELETE FROM notifications WHERE payload -> 'data' ->> 'job_request_id' = $1
		`, jobID.String()); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM job_requests
			WHERE id = $1 AND status = 'open' AND assigned_apprentice_id IS NULL
		`, jobID)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return ErrJobNotDeletable
		}

		// Контрольное чтение: возврат только после подтверждённого удаления.
		var remaining int
		if err = tx.GetContext(ctx, &remaining, `SELECT COUNT(*) FROM job_requests WHERE id = $1`, jobID); err != nil {
			return err
		}
		if remaining != 0 {
			return ErrJobNotDeletable
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE wallets SET balance_ngn = balance_ngn + $2, updated_at = NOW() WHERE user_id = $1
		`, clientID, job.EscrowAmount)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (user_id, transaction_type, amount_ngn, reference, description)
			VALUES ($1, 'escrow_refund', $2, $3, 'Возврат средств за удалённую заявку')
		`, clientID, job.EscrowAmount, job.RefundReference())
		return err
	})
}
