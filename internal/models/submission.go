package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы промежуточных отчётов о ходе работы
const (
	JobUpdateStatusPendingReview = "pending_review"
	JobUpdateStatusApproved      = "approved"
	JobUpdateStatusNeedsChanges  = "needs_changes"
	JobUpdateStatusAcknowledged  = "acknowledged"
)

// Статусы финальных сдач работы
const (
	FinalSubmissionStatusPendingReview = "pending_review"
	FinalSubmissionStatusApproved      = "approved"
	FinalSubmissionStatusNeedsRevision = "needs_revision"
	FinalSubmissionStatusDisputed      = "disputed"
)

// Типы обратной связи участника по сдачам
const (
	FeedbackTypeApprove         = "approve"
	FeedbackTypeNeedsChanges    = "needs_changes"
	FeedbackTypeRequestRevision = "request_revision"
	FeedbackTypeDispute         = "dispute"
)

// JobUpdate представляет промежуточный отчёт подмастерья по заявке.
// VersionNumber строго возрастает в пределах одной заявки.
type JobUpdate struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	JobRequestID  uuid.UUID  `db:"job_request_id" json:"job_request_id"`
	ApprenticeID  uuid.UUID  `db:"apprentice_id" json:"apprentice_id"`
	VersionNumber int        `db:"version_number" json:"version_number"`
	Summary       string     `db:"summary" json:"summary"`
	AttachmentID  *uuid.UUID `db:"attachment_id" json:"attachment_id,omitempty"`
	Status        string     `db:"status" json:"status"`
	Feedback      *string    `db:"feedback" json:"feedback,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// FinalSubmission представляет финальную сдачу работы.
// Ровно одно одобрение порождает ровно одну выплату.
type FinalSubmission struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	JobRequestID uuid.UUID  `db:"job_request_id" json:"job_request_id"`
	ApprenticeID uuid.UUID  `db:"apprentice_id" json:"apprentice_id"`
	Summary      string     `db:"summary" json:"summary"`
	AttachmentID *uuid.UUID `db:"attachment_id" json:"attachment_id,omitempty"`
	Status       string     `db:"status" json:"status"`
	Feedback     *string    `db:"feedback" json:"feedback,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
