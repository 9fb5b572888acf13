package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы транзакций кошелька
const (
	TransactionTypeDeposit       = "deposit"
	TransactionTypeWithdrawal    = "withdrawal"
	TransactionTypeEscrowHold    = "escrow_hold"
	TransactionTypeEscrowRelease = "escrow_release"
	TransactionTypeEscrowRefund  = "escrow_refund"
)

// Wallet представляет баланс пользователя в найрах.
type Wallet struct {
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	BalanceNGN float64   `db:"balance_ngn" json:"balance_ngn"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// WalletTransaction представляет запись журнала движения средств.
// Журнал только пополняется: записи никогда не изменяются и не удаляются.
// Пара (Reference, TransactionType) служит идемпотентным ключом выплаты.
type WalletTransaction struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	JobRequestID    *uuid.UUID `db:"job_request_id" json:"job_request_id,omitempty"`
	TransactionType string     `db:"transaction_type" json:"transaction_type"`
	AmountNGN       float64    `db:"amount_ngn" json:"amount_ngn"`
	Reference       string     `db:"reference" json:"reference"`
	Description     *string    `db:"description" json:"description,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Статусы заявок на вывод средств
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
)

// Withdrawal представляет заявку на вывод заработанных средств.
type Withdrawal struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	AmountNGN       float64    `db:"amount_ngn" json:"amount_ngn"`
	Status          string     `db:"status" json:"status"`
	BankName        *string    `db:"bank_name" json:"bank_name,omitempty"`
	AccountLast4    *string    `db:"account_last4" json:"account_last4,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}
