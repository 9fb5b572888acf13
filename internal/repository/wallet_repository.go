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
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
)

type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetWallet возвращает кошелёк пользователя, создаёт нулевой если не существует.
func (r *WalletRepository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		INSERT INTO wallets (user_id, balance_ngn)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, balance_ngn, updated_at
	`
	if err := r.db.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, fmt.Errorf("wallet repository: get wallet %w", err)
	}
	return &wallet, nil
}

// Deposit пополняет кошелёк пользователя.
func (r *WalletRepository) Deposit(ctx context.Context, userID uuid.UUID, amount float64, reference, description string) (*models.WalletTransaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance_ngn)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance_ngn = wallets.balance_ngn + $2, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: deposit update balance %w", err)
	}

	var transaction models.WalletTransaction
	err = tx.GetContext(ctx, &transaction, `
		INSERT INTO wallet_transactions (user_id, transaction_type, amount_ngn, reference, description)
		VALUES ($1, 'deposit', $2, $3, $4)
		RETURNING id, user_id, job_request_id, transaction_type, amount_ngn, reference, description, created_at
	`, userID, amount, reference, description)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: deposit create transaction %w", err)
	}

	return &transaction, tx.Commit()
}

// HasTransaction проверяет наличие записи журнала по идемпотентному ключу.
// Используется как предварительная проверка перед выплатой; окончательную
// гарантию даёт частичный уникальный индекс на (reference, transaction_type).
func (r *WalletRepository) HasTransaction(ctx context.Context, reference, transactionType string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM wallet_transactions WHERE reference = $1 AND transaction_type = $2
	`, reference, transactionType)
	if err != nil {
		return false, fmt.Errorf("wallet repository: has transaction %w", err)
	}
	return count > 0, nil
}

// ListTransactions возвращает историю транзакций пользователя.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	var transactions []models.WalletTransaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, user_id, job_request_id, transaction_type, amount_ngn, reference, description, created_at
		FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return transactions, err
}

// CreateWithdrawal списывает средства и создаёт заявку на вывод.
func (r *WalletRepository) CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount float64, bankName, accountLast4 string) (*models.Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Блокируем кошелёк и проверяем баланс в той же транзакции.
	var wallet models.Wallet
	err = tx.GetContext(ctx, &wallet, `SELECT user_id, balance_ngn, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	if wallet.BalanceNGN < amount {
		return nil, ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets SET balance_ngn = balance_ngn - $2, updated_at = NOW() WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return nil, err
	}

	var withdrawal models.Withdrawal
	err = tx.GetContext(ctx, &withdrawal, `
		INSERT INTO withdrawals (user_id, amount_ngn, status, bank_name, account_last4)
		VALUES ($1, $2, 'pending', $3, $4)
		RETURNING id, user_id, amount_ngn, status, bank_name, account_last4, rejection_reason, created_at, processed_at
	`, userID, amount, bankName, accountLast4)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (user_id, transaction_type, amount_ngn, reference, description)
		VALUES ($1, 'withdrawal', $2, $3, 'Вывод средств')
	`, userID, -amount, "withdrawal_"+withdrawal.ID.String())
	if err != nil {
		return nil, err
	}

	return &withdrawal, tx.Commit()
}

// ListWithdrawals возвращает заявки пользователя на вывод средств.
func (r *WalletRepository) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT * FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return withdrawals, err
}

// ListPendingWithdrawals возвращает все ожидающие заявки на вывод.
func (r *WalletRepository) ListPendingWithdrawals(ctx context.Context, limit, offset int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT * FROM withdrawals WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	return withdrawals, err
}

// CompleteWithdrawal помечает ожидающую заявку на вывод выполненной.
// Средства уже списаны при создании заявки.
func (r *WalletRepository) CompleteWithdrawal(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE withdrawals SET status = 'completed', processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrWithdrawalNotFound
	}
	return nil
}

// RejectWithdrawal отклоняет ожидающую заявку на вывод и возвращает
// средства на кошелёк одной транзакцией.
func (r *WalletRepository) RejectWithdrawal(ctx context.Context, id uuid.UUID, reason string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var w models.Withdrawal
		err := tx.GetContext(ctx, &w, `SELECT * FROM withdrawals WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWithdrawalNotFound
			}
			return err
		}
		if w.Status != models.WithdrawalStatusPending {
			return ErrWithdrawalNotFound
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE withdrawals SET status = 'rejected', rejection_reason = $2, processed_at = NOW()
			WHERE id = $1
		`, id, reason)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE wallets SET balance_ngn = balance_ngn + $2, updated_at = NOW() WHERE user_id = $1
		`, w.UserID, w.AmountNGN)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (user_id, transaction_type, amount_ngn, reference, description)
			VALUES ($1, 'deposit', $2, $3, 'Возврат средств по отклонённому выводу')
		`, w.UserID, w.AmountNGN, "withdrawal_refund_"+w.ID.String())
		return err
	})
}
