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

// SubmissionRepository описывает зависимости SubmissionService.
type SubmissionRepository interface {
	CreateUpdate(ctx context.Context, upd *models.JobUpdate) error
	GetUpdateByID(ctx context.Context, id uuid.UUID) (*models.JobUpdate, error)
	ListUpdatesByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobUpdate, error)
	SetUpdateFeedback(ctx context.Context, id uuid.UUID, status string, feedback *string) error
	AcknowledgePendingUpdates(ctx context.Context, jobID uuid.UUID) error
	CreateFinalSubmission(ctx context.Context, sub *models.FinalSubmission) error
	GetFinalByID(ctx context.Context, id uuid.UUID) (*models.FinalSubmission, error)
	ListFinalByJob(ctx context.Context, jobID uuid.UUID) ([]models.FinalSubmission, error)
	SetFinalFeedback(ctx context.Context, id uuid.UUID, status string, feedback *string) error
	ApproveFinalWithPayout(ctx context.Context, submissionID uuid.UUID, feedback *string) (bool, error)
}

// JobRepoForSubmission нужен для проверок принадлежности и статуса.
type JobRepoForSubmission interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)
}

// SubmissionNotifier уведомляет стороны о сдачах и отзывах.
type SubmissionNotifier interface {
	NotifyJobAlert(userID uuid.UUID, jobID uuid.UUID, message string)
}

// SubmissionService управляет промежуточными отчётами и итоговыми сдачами.
type SubmissionService struct {
	repo     SubmissionRepository
	jobs     JobRepoForSubmission
	notifier SubmissionNotifier
}

func NewSubmissionService(repo SubmissionRepository, jobs JobRepoForSubmission, notifier SubmissionNotifier) *SubmissionService {
	return &SubmissionService{repo: repo, jobs: jobs, notifier: notifier}
}

// SubmitUpdate создаёт промежуточный отчёт назначенного подмастерья.
func (s *SubmissionService) SubmitUpdate(ctx context.Context, jobID, apprenticeID uuid.UUID, summary string, attachmentID *uuid.UUID) (*models.JobUpdate, error) {
	if err := validation.ValidateLength("отчёт", summary, 1, validation.MaxSummaryLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrJobNotFound
	}
	if job.AssignedApprenticeID == nil || *job.AssignedApprenticeID != apprenticeID {
		return nil, apperror.ErrForbidden
	}

	upd := &models.JobUpdate{
		ID:           uuid.New(),
		JobRequestID: jobID,
		ApprenticeID: apprenticeID,
		Summary:      summary,
		AttachmentID: attachmentID,
	}

	if err := s.repo.CreateUpdate(ctx, upd); err != nil {
		if errors.Is(err, repository.ErrJobNotInProgress) {
			return nil, apperror.New(apperror.ErrCodeConflict, "заявка не находится в работе")
		}
		return nil, fmt.Errorf("submission service: создание отчёта: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyJobAlert(job.ClientID, jobID, "Получен новый отчёт о ходе работы")
	}
	return upd, nil
}

// ListUpdates возвращает отчёты по заявке. Доступно сторонам заявки.
func (s *SubmissionService) ListUpdates(ctx context.Context, jobID, requesterID uuid.UUID) ([]models.JobUpdate, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrJobNotFound
	}
	if !isJobParty(job, requesterID) {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListUpdatesByJob(ctx, jobID)
}

// ReviewUpdate записывает отзыв участника на промежуточный отчёт.
// Тип отзыва отображается в статус отчёта; неизвестный тип
// означает простое подтверждение просмотра.
func (s *SubmissionService) ReviewUpdate(ctx context.Context, updateID, clientID uuid.UUID, feedbackType string, feedback *string) error {
	upd, err := s.repo.GetUpdateByID(ctx, updateID)
	if err != nil {
		return apperror.ErrSubmissionNotFound
	}

	job, err := s.jobs.GetByID(ctx, upd.JobRequestID)
	if err != nil {
		return apperror.ErrJobNotFound
	}
	if job.ClientID != clientID {
		return apperror.ErrForbidden
	}

	status := updateStatusForFeedback(feedbackType)
	if err := s.repo.SetUpdateFeedback(ctx, updateID, status, feedback); err != nil {
		return fmt.Errorf("submission service: отзыв на отчёт: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyJobAlert(upd.ApprenticeID, upd.JobRequestID, "Участник оставил отзыв на отчёт")
	}
	return nil
}

// SubmitFinal создаёт итоговую сдачу и переводит заявку на проверку.
// Все ожидающие отчёты при этом закрываются.
func (s *SubmissionService) SubmitFinal(ctx context.Context, jobID, apprenticeID uuid.UUID, summary string, attachmentID *uuid.UUID) (*models.FinalSubmission, error) {
	if err := validation.ValidateLength("описание работы", summary, 1, validation.MaxSummaryLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrJobNotFound
	}
	if job.AssignedApprenticeID == nil || *job.AssignedApprenticeID != apprenticeID {
		return nil, apperror.ErrForbidden
	}

	sub := &models.FinalSubmission{
		ID:           uuid.New(),
		JobRequestID: jobID,
		ApprenticeID: apprenticeID,
		Summary:      summary,
		AttachmentID: attachmentID,
	}

	if err := s.repo.CreateFinalSubmission(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrJobNotInProgress) {
			return nil, apperror.New(apperror.ErrCodeConflict, "заявка не находится в работе")
		}
		return nil, fmt.Errorf("submission service: итоговая сдача: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyJobAlert(job.ClientID, jobID, "Итоговая работа сдана на проверку")
	}
	return sub, nil
}

// ListFinal возвращает итоговые сдачи по заявке.
func (s *SubmissionService) ListFinal(ctx context.Context, jobID, requesterID uuid.UUID) ([]models.FinalSubmission, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrJobNotFound
	}
	if !isJobParty(job, requesterID) {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListFinalByJob(ctx, jobID)
}

// ReviewFinal записывает решение участника по итоговой работе.
// Одобрение завершает заявку и проводит выплату; повторное одобрение
// выплату не дублирует.
func (s *SubmissionService) ReviewFinal(ctx context.Context, submissionID, clientID uuid.UUID, feedbackType string, feedback *string) error {
	sub, err := s.repo.GetFinalByID(ctx, submissionID)
	if err != nil {
		return apperror.ErrSubmissionNotFound
	}

	job, err := s.jobs.GetByID(ctx, sub.JobRequestID)
	if err != nil {
		return apperror.ErrJobNotFound
	}
	if job.ClientID != clientID {
		return apperror.ErrForbidden
	}

	if feedbackType == models.FeedbackTypeApprove {
		skipped, err := s.repo.ApproveFinalWithPayout(ctx, submissionID, feedback)
		if err != nil {
			if errors.Is(err, repository.ErrJobNotPending) {
				return apperror.New(apperror.ErrCodeConflict, "заявка не ожидает проверки")
			}
			return apperror.Wrap(err, apperror.ErrCodePayoutFailed, "выплата не прошла")
		}
		if !skipped && s.notifier != nil {
			s.notifier.NotifyJobAlert(sub.ApprenticeID, sub.JobRequestID, "Работа принята, выплата проведена")
		}
		return nil
	}

	status := finalStatusForFeedback(feedbackType)
	if err := s.repo.SetFinalFeedback(ctx, submissionID, status, feedback); err != nil {
		return fmt.Errorf("submission service: отзыв на итоговую работу: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyJobAlert(sub.ApprenticeID, sub.JobRequestID, "Участник оставил решение по итоговой работе")
	}
	return nil
}

// updateStatusForFeedback отображает тип отзыва в статус промежуточного отчёта.
func updateStatusForFeedback(feedbackType string) string {
	switch feedbackType {
	case models.FeedbackTypeApprove:
		return models.JobUpdateStatusApproved
	case models.FeedbackTypeNeedsChanges, models.FeedbackTypeRequestRevision:
		return models.JobUpdateStatusNeedsChanges
	default:
		return models.JobUpdateStatusAcknowledged
	}
}

// finalStatusForFeedback отображает тип отзыва в статус итоговой сдачи.
func finalStatusForFeedback(feedbackType string) string {
	switch feedbackType {
	case models.FeedbackTypeNeedsChanges, models.FeedbackTypeRequestRevision:
		return models.FinalSubmissionStatusNeedsRevision
	case models.FeedbackTypeDispute:
		return models.FinalSubmissionStatusDisputed
	default:
		return models.FinalSubmissionStatusPendingReview
	}
}

// isJobParty проверяет, является ли пользователь стороной заявки.
func isJobParty(job *models.JobRequest, userID uuid.UUID) bool {
	if job.ClientID == userID {
		return true
	}
	return job.AssignedApprenticeID != nil && *job.AssignedApprenticeID == userID
}
