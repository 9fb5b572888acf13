package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/repository/common"
)

var (
	ErrRatingNotFound = errors.New("rating not found")
	ErrRatingExists   = errors.New("rating already exists")
)

type RatingRepository struct {
	db *sqlx.DB
}

func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create сохраняет оценку. Повторная оценка той же заявки тем же участником
// упирается в уникальный индекс.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	err := r.db.GetContext(ctx, rating, `
		INSERT INTO ratings (id, job_request_id, rater_id, ratee_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, job_request_id, rater_id, ratee_id, rating, comment, created_at, updated_at
	`, rating.ID, rating.JobRequestID, rating.RaterID, rating.RateeID, rating.Rating, rating.Comment)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return ErrRatingExists
		}
		return err
	}
	return nil
}

// GetByID возвращает оценку по идентификатору.
func (r *RatingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rating, error) {
	return common.GetByID[models.Rating](ctx, r.db, "ratings", id, ErrRatingNotFound)
}

// GetByJobAndRater возвращает оценку участника по конкретной заявке.
func (r *RatingRepository) GetByJobAndRater(ctx context.Context, jobID, raterID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.GetContext(ctx, &rating, `
		SELECT * FROM ratings WHERE job_request_id = $1 AND rater_id = $2
	`, jobID, raterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, err
	}
	return &rating, nil
}

// ListByRatee возвращает оценки подмастерья, новые первыми.
func (r *RatingRepository) ListByRatee(ctx context.Context, rateeID uuid.UUID) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.SelectContext(ctx, &ratings, `
		SELECT * FROM ratings WHERE ratee_id = $1 ORDER BY created_at DESC
	`, rateeID)
	return ratings, err
}

// GetDetails собирает сводку по оценкам подмастерья: среднее, количество,
// распределение по баллам и пять последних оценок.
func (r *RatingRepository) GetDetails(ctx context.Context, rateeID uuid.UUID) (*models.RatingDetails, error) {
	details := &models.RatingDetails{ApprenticeID: rateeID, Breakdown: map[int]int{}}

	err := r.db.QueryRowxContext(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM ratings WHERE ratee_id = $1
	`, rateeID).Scan(&details.AverageRating, &details.TotalRatings)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT rating, COUNT(*) FROM ratings WHERE ratee_id = $1 GROUP BY rating
	`, rateeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var score, count int
		if err := rows.Scan(&score, &count); err != nil {
			return nil, err
		}
		details.Breakdown[score] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &details.Recent, `
		SELECT * FROM ratings WHERE ratee_id = $1 ORDER BY created_at DESC LIMIT 5
	`, rateeID)
	if err != nil {
		return nil, err
	}

	return details, nil
}

// Update меняет балл и комментарий оценки. Менять может только её автор.
func (r *RatingRepository) Update(ctx context.Context, id, raterID uuid.UUID, value int, comment *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ratings SET rating = $3, comment = $4, updated_at = NOW()
		WHERE id = $1 AND rater_id = $2
	`, id, raterID, value, comment)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrRatingNotFound
	}
	return nil
}

// Delete удаляет оценку её автора.
func (r *RatingRepository) Delete(ctx context.Context, id, raterID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM ratings WHERE id = $1 AND rater_id = $2
	`, id, raterID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrRatingNotFound
	}
	return nil
}
