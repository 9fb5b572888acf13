package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/craftlink/craftlink-backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func jobRequestColumns() []string {
	return []string{
		"id", "client_id", "assigned_apprentice_id", "title", "description",
		"fixed_price", "escrow_amount", "status", "completed_at",
		"review_submitted_at", "created_at", "updated_at",
	}
}

func TestJobRepository_CreateWithEscrow_HoldsEscrow(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewJobRepository(dbx)

	clientID := uuid.New()
	job := &models.JobRequest{
		ID:           uuid.New(),
		ClientID:     clientID,
		Title:        "Пошив кожаной сумки",
		Description:  "Ручная работа, натуральная кожа",
		FixedPrice:   5000,
		EscrowAmount: 5000,
	}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, balance_ngn, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`)).
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance_ngn", "updated_at"}).
			AddRow(clientID.String(), 10000.0, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets SET balance_ngn = balance_ngn - $2, updated_at = NOW() WHERE user_id = $1`)).
		WithArgs(clientID, 5000.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO job_requests`)).
		WithArgs(job.ID, clientID, job.Title, job.Description, 5000.0, 5000.0).
		WillReturnRows(sqlmock.NewRows(jobRequestColumns()).
			AddRow(job.ID.String(), clientID.String(), nil, job.Title, job.Description,
				5000.0, 5000.0, models.JobStatusOpen, nil, nil, now, now))
	// Ровно одна журнальная запись заморозки с отрицательной суммой.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wallet_transactions`)).
		WithArgs(clientID, job.ID, -5000.0, "escrow_"+job.ID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateWithEscrow(context.Background(), job)

	assert.NoError(t, err)
	assert.Equal(t, models.JobStatusOpen, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_CreateWithEscrow_InsufficientFundsNoWrites(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewJobRepository(dbx)

	clientID := uuid.New()
	job := &models.JobRequest{
		ID:           uuid.New(),
		ClientID:     clientID,
		Title:        "Ремонт обуви",
		Description:  "Замена подошвы",
		FixedPrice:   3000,
		EscrowAmount: 3000,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, balance_ngn, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`)).
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance_ngn", "updated_at"}).
			AddRow(clientID.String(), 2000.0, time.Now()))
	mock.ExpectRollback()

	err := repo.CreateWithEscrow(context.Background(), job)

	// Транзакция откатилась: ни списания, ни строки заявки, ни журнала.
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_DeleteWithRefund_RemovesDependents(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewJobRepository(dbx)

	clientID := uuid.New()
	jobID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM job_requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows(jobRequestColumns()).
			AddRow(jobID.String(), clientID.String(), nil, "Пошив сумки", "Описание",
				5000.0, 5000.0, models.JobStatusOpen, nil, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM job_applications WHERE job_request_id = $1`)).
		WithArgs(jobID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM disputes WHERE job_request_id = $1`)).
		WithArgs(jobID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Идентификатор заявки ищется внутри объекта data уведомления.
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM notifications WHERE payload -> 'data' ->> 'job_request_id' = $1`)).
		WithArgs(jobID.String()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM job_requests`)).
		WithArgs(jobID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM job_requests WHERE id = $1`)).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets SET balance_ngn = balance_ngn + $2, updated_at = NOW() WHERE user_id = $1`)).
		WithArgs(clientID, 5000.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wallet_transactions`)).
		WithArgs(clientID, 5000.0, "refund_"+jobID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteWithRefund(context.Background(), jobID, clientID)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
