package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/pkg/apperror"
	"github.com/craftlink/craftlink-backend/internal/repository"
)

// RatingRepository описывает зависимости RatingService.
type RatingRepository interface {
	Create(ctx context.Context, rating *models.Rating) error
	GetByJobAndRater(ctx context.Context, jobID, raterID uuid.UUID) (*models.Rating, error)
	ListByRatee(ctx context.Context, rateeID uuid.UUID) ([]models.Rating, error)
	GetDetails(ctx context.Context, rateeID uuid.UUID) (*models.RatingDetails, error)
	Update(ctx context.Context, id, raterID uuid.UUID, value int, comment *string) error
	Delete(ctx context.Context, id, raterID uuid.UUID) error
}

// JobRepoForRating нужен для проверки права оценивать.
type JobRepoForRating interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)
}

// RatingService управляет оценками подмастерьев.
type RatingService struct {
	repo RatingRepository
	jobs JobRepoForRating
}

func NewRatingService(repo RatingRepository, jobs JobRepoForRating) *RatingService {
	return &RatingService{repo: repo, jobs: jobs}
}

// RateApprentice оставляет оценку подмастерью по завершённой заявке.
// Оценивать может только участник-владелец, одну заявку — один раз.
func (s *RatingService) RateApprentice(ctx context.Context, jobID, raterID uuid.UUID, value int, comment *string) (*models.Rating, error) {
	if value < 1 || value > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrJobNotFound
	}
	if job.ClientID != raterID {
		return nil, apperror.ErrForbidden
	}
	if job.Status != models.JobStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeConflict, "оценить можно только завершённую работу")
	}
	if job.AssignedApprenticeID == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "у заявки нет исполнителя")
	}
	if *job.AssignedApprenticeID == raterID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя оценить самого себя")
	}

	rating := &models.Rating{
		ID:           uuid.New(),
		JobRequestID: jobID,
		RaterID:      raterID,
		RateeID:      *job.AssignedApprenticeID,
		Rating:       value,
		Comment:      comment,
	}

	if err := s.repo.Create(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrRatingExists) {
			return nil, apperror.ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("rating service: создание оценки: %w", err)
	}
	return rating, nil
}

// CanRate сообщает, может ли пользователь оценить работу по заявке.
func (s *RatingService) CanRate(ctx context.Context, jobID, userID uuid.UUID) (bool, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return false, nil
	}
	if job.ClientID != userID || job.Status != models.JobStatusCompleted || job.AssignedApprenticeID == nil {
		return false, nil
	}

	if _, err := s.repo.GetByJobAndRater(ctx, jobID, userID); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrRatingNotFound) {
		return false, err
	}
	return true, nil
}

// GetDetails возвращает сводку оценок подмастерья.
func (s *RatingService) GetDetails(ctx context.Context, apprenticeID uuid.UUID) (*models.RatingDetails, error) {
	return s.repo.GetDetails(ctx, apprenticeID)
}

// ListRatings возвращает оценки подмастерья.
func (s *RatingService) ListRatings(ctx context.Context, apprenticeID uuid.UUID) ([]models.Rating, error) {
	return s.repo.ListByRatee(ctx, apprenticeID)
}

// UpdateRating меняет оценку её автора.
func (s *RatingService) UpdateRating(ctx context.Context, id, raterID uuid.UUID, value int, comment *string) error {
	if value < 1 || value > 5 {
		return apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}
	if err := s.repo.Update(ctx, id, raterID, value, comment); err != nil {
		if errors.Is(err, repository.ErrRatingNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "оценка не найдена")
		}
		return fmt.Errorf("rating service: изменение оценки: %w", err)
	}
	return nil
}

// DeleteRating удаляет оценку её автора.
func (s *RatingService) DeleteRating(ctx context.Context, id, raterID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, raterID); err != nil {
		if errors.Is(err, repository.ErrRatingNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "оценка не найдена")
		}
		return fmt.Errorf("rating service: удаление оценки: %w", err)
	}
	return nil
}
