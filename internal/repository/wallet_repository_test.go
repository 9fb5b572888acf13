package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWalletRepository_Deposit_WritesLedgerRow(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewWalletRepository(dbx)

	userID := uuid.New()
	txID := uuid.New()
	reference := "deposit_" + uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wallets`)).
		WithArgs(userID, 5000.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO wallet_transactions`)).
		WithArgs(userID, 5000.0, reference, "Пополнение кошелька").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "job_request_id", "transaction_type",
			"amount_ngn", "reference", "description", "created_at",
		}).AddRow(txID.String(), userID.String(), nil, "deposit",
			5000.0, reference, "Пополнение кошелька", time.Now()))
	mock.ExpectCommit()

	transaction, err := repo.Deposit(context.Background(), userID, 5000, reference, "Пополнение кошелька")

	assert.NoError(t, err)
	assert.Equal(t, 5000.0, transaction.AmountNGN)
	assert.Equal(t, reference, transaction.Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_CreateWithdrawal_InsufficientFundsNoWrites(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewWalletRepository(dbx)

	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance_ngn", "updated_at"}).
			AddRow(userID.String(), 1000.0, time.Now()))
	mock.ExpectRollback()

	_, err := repo.CreateWithdrawal(context.Background(), userID, 5000, "GTBank", "1234")

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}
