package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/pkg/apperror"
	"github.com/craftlink/craftlink-backend/internal/repository"
	"github.com/craftlink/craftlink-backend/internal/validation"
)

// DisputeRepository описывает зависимости DisputeService.
type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetOpenByJob(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Dispute, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID) error
	Close(ctx context.Context, id uuid.UUID) error
}

// JobRepoForDispute нужен для проверки сторон заявки.
type JobRepoForDispute interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)
}

// DisputeService управляет спорами по заявкам.
// Решение спора только фиксируется: перемещение средств по решению
// выполняется администратором отдельно.
type DisputeService struct {
	repo DisputeRepository
	jobs JobRepoForDispute
}

func NewDisputeService(repo DisputeRepository, jobs JobRepoForDispute) *DisputeService {
	return &DisputeService{repo: repo, jobs: jobs}
}

// RaiseDispute открывает спор. Инициатором может быть только
// участник или назначенный подмастерье заявки; по одной заявке
// одновременно открыт не более чем один спор.
func (s *DisputeService) RaiseDispute(ctx context.Context, jobID, raisedBy uuid.UUID, reason string) (*models.Dispute, error) {
	if err := validation.ValidateLength("причина спора", reason, 1, validation.MaxDisputeReasonLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrJobNotFound
	}
	if job.AssignedApprenticeID == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "спор возможен только по заявке с исполнителем")
	}
	if raisedBy != job.ClientID && raisedBy != *job.AssignedApprenticeID {
		return nil, apperror.ErrForbidden
	}

	if existing, err := s.repo.GetOpenByJob(ctx, jobID); err == nil && existing != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "по заявке уже открыт спор")
	}

	dispute := &models.Dispute{
		ID:           uuid.New(),
		JobRequestID: jobID,
		MemberID:     job.ClientID,
		ApprenticeID: *job.AssignedApprenticeID,
		RaisedBy:     raisedBy,
		Reason:       reason,
	}

	if err := s.repo.Create(ctx, dispute); err != nil {
		return nil, fmt.Errorf("dispute service: создание спора: %w", err)
	}
	return dispute, nil
}

// GetDispute возвращает спор. Доступно сторонам спора и администратору.
func (s *DisputeService) GetDispute(ctx context.Context, id, requesterID uuid.UUID, requesterRole string) (*models.Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDisputeNotFound
	}
	if requesterRole != models.RoleAdmin && requesterID != dispute.MemberID && requesterID != dispute.ApprenticeID {
		return nil, apperror.ErrForbidden
	}
	return dispute, nil
}

// ListMyDisputes возвращает споры пользователя.
func (s *DisputeService) ListMyDisputes(ctx context.Context, userID uuid.UUID) ([]models.Dispute, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListOpenDisputes возвращает открытые споры для администратора.
func (s *DisputeService) ListOpenDisputes(ctx context.Context, requesterRole string, limit, offset int) ([]models.Dispute, error) {
	if requesterRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByStatus(ctx, models.DisputeStatusOpen, limit, offset)
}

// ResolveDispute фиксирует решение администратора по спору.
func (s *DisputeService) ResolveDispute(ctx context.Context, id, adminID uuid.UUID, adminRole, resolution string) error {
	if adminRole != models.RoleAdmin {
		return apperror.ErrForbidden
	}
	if resolution != models.DisputeResolutionFavorMember && resolution != models.DisputeResolutionFavorApprentice {
		return apperror.New(apperror.ErrCodeValidation, "недопустимое решение спора")
	}

	if err := s.repo.Resolve(ctx, id, resolution, adminID); err != nil {
		if errors.Is(err, repository.ErrDisputeNotOpen) {
			return apperror.New(apperror.ErrCodeConflict, "спор уже разрешён или закрыт")
		}
		return fmt.Errorf("dispute service: разрешение спора: %w", err)
	}
	return nil
}

// CloseDispute закрывает открытый спор без решения.
func (s *DisputeService) CloseDispute(ctx context.Context, id uuid.UUID, adminRole string) error {
	if adminRole != models.RoleAdmin {
		return apperror.ErrForbidden
	}
	if err := s.repo.Close(ctx, id); err != nil {
		if errors.Is(err, repository.ErrDisputeNotOpen) {
			return apperror.New(apperror.ErrCodeConflict, "спор уже разрешён или закрыт")
		}
		return fmt.Errorf("dispute service: закрытие спора: %w", err)
	}
	return nil
}
