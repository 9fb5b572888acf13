package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/craftlink/craftlink-backend/internal/models"
)

// AdminRepository читает агрегаты для админ-панели.
// Все запросы только читающие, транзакции не нужны.
type AdminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// CountJobsByStatus возвращает число заявок в указанном статусе.
func (r *AdminRepository) CountJobsByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM job_requests WHERE status = $1`, status)
	return count, err
}

// SumHeldEscrow возвращает суммарный замороженный escrow
// по заявкам в работе и на проверке.
func (r *AdminRepository) SumHeldEscrow(ctx context.Context) (float64, error) {
	var sum float64
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(escrow_amount), 0) FROM job_requests
		WHERE status IN ('open', 'in_progress', 'pending_review')
	`)
	return sum, err
}

// CountPendingWithdrawals возвращает число заявок на вывод в ожидании.
func (r *AdminRepository) CountPendingWithdrawals(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'`)
	return count, err
}

// RecentJobs возвращает последние созданные заявки для ленты активности.
func (r *AdminRepository) RecentJobs(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	var items []models.ActivityItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT 'job' AS source, id AS entity_id, title AS summary, created_at
		FROM job_requests ORDER BY created_at DESC LIMIT $1
	`, limit)
	return items, err
}

// RecentUsers возвращает последних зарегистрированных пользователей.
func (r *AdminRepository) RecentUsers(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	var items []models.ActivityItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT 'user' AS source, id AS entity_id, username AS summary, created_at
		FROM users ORDER BY created_at DESC LIMIT $1
	`, limit)
	return items, err
}

// RecentDisputes возвращает последние открытые споры.
func (r *AdminRepository) RecentDisputes(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	var items []models.ActivityItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT 'dispute' AS source, id AS entity_id, reason AS summary, created_at
		FROM disputes ORDER BY created_at DESC LIMIT $1
	`, limit)
	return items, err
}

// RecentWithdrawals возвращает последние заявки на вывод средств.
func (r *AdminRepository) RecentWithdrawals(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	var items []models.ActivityItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT 'withdrawal' AS source, id AS entity_id,
		       'Вывод ' || amount_ngn::text || ' NGN' AS summary, created_at
		FROM withdrawals ORDER BY created_at DESC LIMIT $1
	`, limit)
	return items, err
}
