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

// ApplicationRepository описывает зависимости ApplicationService.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.JobApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error)
	ListByApprentice(ctx context.Context, apprenticeID uuid.UUID) ([]models.JobApplication, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// JobRepoForApplication нужен для проверки состояния заявки.
type JobRepoForApplication interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)
}

// MediaRepoForApplication проверяет наличие CV у подмастерья.
type MediaRepoForApplication interface {
	GetLatestCVByUser(ctx context.Context, userID uuid.UUID) (*models.MediaFile, error)
}

// ApplicationNotifier уведомляет о событиях откликов.
type ApplicationNotifier interface {
	NotifyApplicationSubmitted(app *models.JobApplication, clientID uuid.UUID)
	NotifyApplicationStatus(app *models.JobApplication, status string)
}

// ApplicationService управляет откликами подмастерьев.
type ApplicationService struct {
	repo     ApplicationRepository
	jobs     JobRepoForApplication
	media    MediaRepoForApplication
	notifier ApplicationNotifier
}

func NewApplicationService(repo ApplicationRepository, jobs JobRepoForApplication, media MediaRepoForApplication, notifier ApplicationNotifier) *ApplicationService {
	return &ApplicationService{repo: repo, jobs: jobs, media: media, notifier: notifier}
}

// Apply создаёт отклик подмастерья на открытую заявку.
// Без загруженного CV отклик невозможен.
func (s *ApplicationService) Apply(ctx context.Context, jobID, apprenticeID uuid.UUID, coverLetter *string) (*models.JobApplication, error) {
	if coverLetter != nil {
		if err := validation.ValidateLength("сопроводительное письмо", *coverLetter, 0, validation.MaxCoverLetterLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrJobNotFound
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeConflict, "заявка уже не принимает отклики")
	}
	if job.ClientID == apprenticeID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя откликнуться на собственную заявку")
	}

	cv, err := s.media.GetLatestCVByUser(ctx, apprenticeID)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "для отклика требуется загруженное CV")
	}

	app := &models.JobApplication{
		ID:           uuid.New(),
		JobRequestID: jobID,
		ApprenticeID: apprenticeID,
		CoverLetter:  coverLetter,
		CVMediaID:    cv.ID,
	}

	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrApplicationExists) {
			return nil, apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на эту заявку")
		}
		return nil, fmt.Errorf("application service: создание отклика: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyApplicationSubmitted(app, job.ClientID)
	}
	return app, nil
}

// ListByJob возвращает отклики на заявку. Доступно только её владельцу.
func (s *ApplicationService) ListByJob(ctx context.Context, jobID, requesterID uuid.UUID) ([]models.JobApplication, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrJobNotFound
	}
	if job.ClientID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListByJob(ctx, jobID)
}

// ListMine возвращает отклики подмастерья.
func (s *ApplicationService) ListMine(ctx context.Context, apprenticeID uuid.UUID) ([]models.JobApplication, error) {
	return s.repo.ListByApprentice(ctx, apprenticeID)
}

// Reject отклоняет отклик. Доступно только владельцу заявки.
func (s *ApplicationService) Reject(ctx context.Context, applicationID, clientID uuid.UUID) error {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return apperror.ErrApplicationNotFound
	}

	job, err := s.jobs.GetByID(ctx, app.JobRequestID)
	if err != nil {
		return apperror.ErrJobNotFound
	}
	if job.ClientID != clientID {
		return apperror.ErrForbidden
	}

	if err := s.repo.UpdateStatus(ctx, applicationID, models.ApplicationStatusRejected); err != nil {
		if errors.Is(err, repository.ErrApplicationNotPending) {
			return apperror.New(apperror.ErrCodeConflict, "отклик уже обработан")
		}
		return fmt.Errorf("application service: отклонение отклика: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyApplicationStatus(app, models.ApplicationStatusRejected)
	}
	return nil
}
