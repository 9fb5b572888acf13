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

// JobRepository описывает зависимости JobService от слоя хранилища.
type JobRepository interface {
	CreateWithEscrow(ctx context.Context, job *models.JobRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.JobRequest, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.JobRequest, error)
	ListByApprentice(ctx context.Context, apprenticeID uuid.UUID) ([]models.JobRequest, error)
	AcceptApplication(ctx context.Context, jobID, applicationID, apprenticeID uuid.UUID) error
	MarkPendingReview(ctx context.Context, jobID, apprenticeID uuid.UUID) error
	ApproveWithPayout(ctx context.Context, jobID uuid.UUID) (bool, error)
	RejectReview(ctx context.Context, jobID uuid.UUID) error
	DeleteWithRefund(ctx context.Context, jobID, clientID uuid.UUID) error
}

// ApplicationRepoForJob нужен JobService для принятия откликов.
type ApplicationRepoForJob interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
}

// JobNotifier рассылает уведомления об изменениях заявки.
type JobNotifier interface {
	NotifyApplicationStatus(app *models.JobApplication, status string)
	NotifyJobAlert(userID uuid.UUID, jobID uuid.UUID, message string)
}

// JobService управляет жизненным циклом заявок на работу.
// Каждая операция с деньгами выполняется репозиторием атомарно.
type JobService struct {
	repo     JobRepository
	apps     ApplicationRepoForJob
	notifier JobNotifier
}

// CreateJobInput содержит данные новой заявки.
type CreateJobInput struct {
	ClientID    uuid.UUID
	Title       string
	Description string
	FixedPrice  float64
}

func NewJobService(repo JobRepository, apps ApplicationRepoForJob, notifier JobNotifier) *JobService {
	return &JobService{repo: repo, apps: apps, notifier: notifier}
}

// CreateJob создаёт заявку, замораживая полную стоимость на escrow.
func (s *JobService) CreateJob(ctx context.Context, in CreateJobInput) (*models.JobRequest, error) {
	if err := validation.ValidateJobTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateJobDescription(in.Description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.FixedPrice < models.MinJobPriceNGN || in.FixedPrice > models.MaxJobPriceNGN {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("цена должна быть от %.0f до %.0f NGN", models.MinJobPriceNGN, models.MaxJobPriceNGN))
	}

	job := &models.JobRequest{
		ID:           uuid.New(),
		ClientID:     in.ClientID,
		Title:        in.Title,
		Description:  in.Description,
		FixedPrice:   in.FixedPrice,
		EscrowAmount: in.FixedPrice,
	}

	if err := s.repo.CreateWithEscrow(ctx, job); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, apperror.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("job service: создание заявки: %w", err)
	}

	return job, nil
}

// GetJob возвращает заявку по идентификатору.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListJobs возвращает заявки по статусу.
func (s *JobService) ListJobs(ctx context.Context, status string, limit, offset int) ([]models.JobRequest, error) {
	if status != "" {
		if _, ok := models.ValidJobStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, status, limit, offset)
}

// ListMyJobs возвращает заявки пользователя с учётом его роли.
func (s *JobService) ListMyJobs(ctx context.Context, userID uuid.UUID, role string) ([]models.JobRequest, error) {
	if role == models.RoleApprentice {
		return s.repo.ListByApprentice(ctx, userID)
	}
	return s.repo.ListByClient(ctx, userID)
}

// AcceptApplication выбирает исполнителя заявки. Только владелец открытой
// заявки может принять отклик; остальные отклики отклоняются.
func (s *JobService) AcceptApplication(ctx context.Context, jobID, applicationID, clientID uuid.UUID) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ClientID != clientID {
		return apperror.ErrForbidden
	}

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return apperror.ErrApplicationNotFound
	}
	if app.JobRequestID != jobID {
		return apperror.New(apperror.ErrCodeValidation, "отклик не относится к этой заявке")
	}

	if err := s.repo.AcceptApplication(ctx, jobID, applicationID, app.ApprenticeID); err != nil {
		switch {
		case errors.Is(err, repository.ErrJobNotOpen):
			return apperror.New(apperror.ErrCodeConflict, "заявка уже не открыта")
		case errors.Is(err, repository.ErrApplicationNotPending):
			return apperror.New(apperror.ErrCodeConflict, "отклик уже обработан")
		default:
			return fmt.Errorf("job service: принятие отклика: %w", err)
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyApplicationStatus(app, models.ApplicationStatusAccepted)
	}
	return nil
}

// CompleteJob переводит заявку на проверку участником.
// Доступно только назначенному подмастерью.
func (s *JobService) CompleteJob(ctx context.Context, jobID, apprenticeID uuid.UUID) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.AssignedApprenticeID == nil || *job.AssignedApprenticeID != apprenticeID {
		return apperror.ErrForbidden
	}

	if err := s.repo.MarkPendingReview(ctx, jobID, apprenticeID); err != nil {
		if errors.Is(err, repository.ErrJobNotInProgress) {
			return apperror.New(apperror.ErrCodeConflict, "заявка не находится в работе")
		}
		return fmt.Errorf("job service: завершение работы: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyJobAlert(job.ClientID, jobID, "Работа сдана на проверку")
	}
	return nil
}

// ApproveReview принимает работу и проводит выплату подмастерью.
// Повторное одобрение той же заявки выплату не дублирует.
func (s *JobService) ApproveReview(ctx context.Context, jobID, clientID uuid.UUID) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ClientID != clientID {
		return apperror.ErrForbidden
	}

	skipped, err := s.repo.ApproveWithPayout(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotPending) {
			return apperror.New(apperror.ErrCodeConflict, "заявка не ожидает проверки")
		}
		return apperror.Wrap(err, apperror.ErrCodePayoutFailed, "выплата не прошла")
	}

	if !skipped && s.notifier != nil && job.AssignedApprenticeID != nil {
		s.notifier.NotifyJobAlert(*job.AssignedApprenticeID, jobID, "Работа принята, выплата проведена")
	}
	return nil
}

// RejectReview возвращает работу подмастерью и escrow участнику.
func (s *JobService) RejectReview(ctx context.Context, jobID, clientID uuid.UUID) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ClientID != clientID {
		return apperror.ErrForbidden
	}

	if err := s.repo.RejectReview(ctx, jobID); err != nil {
		if errors.Is(err, repository.ErrJobNotPending) {
			return apperror.New(apperror.ErrCodeConflict, "заявка не ожидает проверки")
		}
		return fmt.Errorf("job service: отклонение работы: %w", err)
	}

	if s.notifier != nil && job.AssignedApprenticeID != nil {
		s.notifier.NotifyJobAlert(*job.AssignedApprenticeID, jobID, "Работа возвращена на доработку")
	}
	return nil
}

// DeleteJob удаляет открытую неназначенную заявку владельца с возвратом escrow.
func (s *JobService) DeleteJob(ctx context.Context, jobID, clientID uuid.UUID) error {
	if err := s.repo.DeleteWithRefund(ctx, jobID, clientID); err != nil {
		switch {
		case errors.Is(err, repository.ErrJobNotFound):
			return apperror.ErrJobNotFound
		case errors.Is(err, repository.ErrJobNotDeletable):
			return apperror.New(apperror.ErrCodeConflict, "удалить можно только открытую заявку без исполнителя")
		default:
			return fmt.Errorf("job service: удаление заявки: %w", err)
		}
	}
	return nil
}
