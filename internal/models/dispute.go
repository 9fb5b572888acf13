package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
	DisputeStatusClosed   = "closed"
)

// Варианты решения спора. Само движение средств по решению
// выполняется администратором отдельно и здесь не автоматизируется.
const (
	DisputeResolutionFavorMember     = "favor_member"
	DisputeResolutionFavorApprentice = "favor_apprentice"
)

type Dispute struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	JobRequestID uuid.UUID  `db:"job_request_id" json:"job_request_id"`
	MemberID     uuid.UUID  `db:"member_id" json:"member_id"`
	ApprenticeID uuid.UUID  `db:"apprentice_id" json:"apprentice_id"`
	RaisedBy     uuid.UUID  `db:"raised_by" json:"raised_by"`
	Reason       string     `db:"reason" json:"reason"`
	Status       string     `db:"status" json:"status"`
	Resolution   *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy   *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt   *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
