package models

import (
	"time"

	"github.com/google/uuid"
)

// DashboardStats содержит сводные показатели для админ-панели.
// Показатели — чистая проекция: при ошибке чтения источника
// соответствующее поле деградирует до нуля.
type DashboardStats struct {
	TotalUsers         int     `json:"total_users"`
	JobsInProgress     int     `json:"jobs_in_progress"`
	HeldEscrowNGN      float64 `json:"held_escrow_ngn"`
	PendingReviews     int     `json:"pending_reviews"`
	PendingWithdrawals int     `json:"pending_withdrawals"`
	OpenDisputes       int     `json:"open_disputes"`
}

// ActivityItem — запись объединённой ленты последних событий.
type ActivityItem struct {
	Source    string    `db:"source" json:"source"`
	EntityID  uuid.UUID `db:"entity_id" json:"entity_id"`
	Summary   string    `db:"summary" json:"summary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
