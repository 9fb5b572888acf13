package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заявок на работу
const (
	JobStatusOpen          = "open"
	JobStatusInProgress    = "in_progress"
	JobStatusPendingReview = "pending_review"
	JobStatusCompleted     = "completed"
)

// Границы фиксированной цены работы в найрах.
const (
	MinJobPriceNGN = 3000.0
	MaxJobPriceNGN = 50000.0
)

// Статусы откликов подмастерьев
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// ValidJobStatuses список валидных статусов заявок
var ValidJobStatuses = map[string]struct{}{
	JobStatusOpen:          {},
	JobStatusInProgress:    {},
	JobStatusPendingReview: {},
	JobStatusCompleted:     {},
}

// JobRequest описывает заявку участника на выполнение работы.
// EscrowAmount фиксируется при создании и не меняется до выплаты или возврата.
type JobRequest struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	ClientID             uuid.UUID  `db:"client_id" json:"client_id"`
	AssignedApprenticeID *uuid.UUID `db:"assigned_apprentice_id" json:"assigned_apprentice_id,omitempty"`
	Title                string     `db:"title" json:"title"`
	Description          string     `db:"description" json:"description"`
	FixedPrice           float64    `db:"fixed_price" json:"fixed_price"`
	EscrowAmount         float64    `db:"escrow_amount" json:"escrow_amount"`
	Status               string     `db:"status" json:"status"`
	CompletedAt          *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ReviewSubmittedAt    *time.Time `db:"review_submitted_at" json:"review_submitted_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// PayoutReference возвращает идемпотентный ключ выплаты по этой заявке.
func (j *JobRequest) PayoutReference() string {
	return "payout_" + j.ID.String()
}

// EscrowReference возвращает ключ транзакции заморозки средств.
func (j *JobRequest) EscrowReference() string {
	return "escrow_" + j.ID.String()
}

// RefundReference возвращает ключ транзакции возврата средств.
func (j *JobRequest) RefundReference() string {
	return "refund_" + j.ID.String()
}

// JobApplication представляет отклик подмастерья на заявку.
type JobApplication struct {
	ID           uuid.UUID `db:"id" json:"id"`
	JobRequestID uuid.UUID `db:"job_request_id" json:"job_request_id"`
	ApprenticeID uuid.UUID `db:"apprentice_id" json:"apprentice_id"`
	CoverLetter  *string   `db:"cover_letter" json:"cover_letter,omitempty"`
	CVMediaID    uuid.UUID `db:"cv_media_id" json:"cv_media_id"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
