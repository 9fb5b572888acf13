package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/pkg/apperror"
	"github.com/craftlink/craftlink-backend/internal/repository"
)

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) CreateWithEscrow(ctx context.Context, job *models.JobRequest) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobRequest), args.Error(1)
}

func (m *mockJobRepo) List(ctx context.Context, status string, limit, offset int) ([]models.JobRequest, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]models.JobRequest), args.Error(1)
}

func (m *mockJobRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.JobRequest, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]models.JobRequest), args.Error(1)
}

func (m *mockJobRepo) ListByApprentice(ctx context.Context, apprenticeID uuid.UUID) ([]models.JobRequest, error) {
	args := m.Called(ctx, apprenticeID)
	return args.Get(0).([]models.JobRequest), args.Error(1)
}

func (m *mockJobRepo) AcceptApplication(ctx context.Context, jobID, applicationID, apprenticeID uuid.UUID) error {
	args := m.Called(ctx, jobID, applicationID, apprenticeID)
	return args.Error(0)
}

func (m *mockJobRepo) MarkPendingReview(ctx context.Context, jobID, apprenticeID uuid.UUID) error {
	args := m.Called(ctx, jobID, apprenticeID)
	return args.Error(0)
}

func (m *mockJobRepo) ApproveWithPayout(ctx context.Context, jobID uuid.UUID) (bool, error) {
	args := m.Called(ctx, jobID)
	return args.Bool(0), args.Error(1)
}

func (m *mockJobRepo) RejectReview(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *mockJobRepo) DeleteWithRefund(ctx context.Context, jobID, clientID uuid.UUID) error {
	args := m.Called(ctx, jobID, clientID)
	return args.Error(0)
}

type mockAppRepoForJob struct {
	mock.Mock
}

func (m *mockAppRepoForJob) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobApplication), args.Error(1)
}

type mockJobNotifier struct {
	mock.Mock
}

func (m *mockJobNotifier) NotifyApplicationStatus(app *models.JobApplication, status string) {
	m.Called(app, status)
}

func (m *mockJobNotifier) NotifyJobAlert(userID uuid.UUID, jobID uuid.UUID, message string) {
	m.Called(userID, jobID, message)
}

func newJobService() (*JobService, *mockJobRepo, *mockAppRepoForJob, *mockJobNotifier) {
	repo := new(mockJobRepo)
	apps := new(mockAppRepoForJob)
	notifier := new(mockJobNotifier)
	return NewJobService(repo, apps, notifier), repo, apps, notifier
}

func TestJobService_CreateJob_Success(t *testing.T) {
	svc, repo, _, _ := newJobService()
	ctx := context.Background()
	clientID := uuid.New()

	repo.On("CreateWithEscrow", ctx, mock.AnythingOfType("*models.JobRequest")).Return(nil)

	job, err := svc.CreateJob(ctx, CreateJobInput{
		ClientID:    clientID,
		Title:       "Починить крышу",
		Description: "Заменить листы кровли на гараже",
		FixedPrice:  15000,
	})

	assert.NoError(t, err)
	assert.NotNil(t, job)
	assert.Equal(t, 15000.0, job.EscrowAmount)
	assert.Equal(t, clientID, job.ClientID)
}

func TestJobService_CreateJob_PriceOutOfRange(t *testing.T) {
	svc, repo, _, _ := newJobService()
	ctx := context.Background()

	for _, price := range []float64{0, 2999.99, 50000.01, -100} {
		_, err := svc.CreateJob(ctx, CreateJobInput{
			ClientID:    uuid.New(),
			Title:       "Починить крышу",
			Description: "Заменить листы кровли на гараже",
			FixedPrice:  price,
		})
		assert.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	}
	repo.AssertNotCalled(t, "CreateWithEscrow", mock.Anything, mock.Anything)
}

func TestJobService_CreateJob_InsufficientFunds(t *testing.T) {
	svc, repo, _, _ := newJobService()
	ctx := context.Background()

	repo.On("CreateWithEscrow", ctx, mock.AnythingOfType("*models.JobRequest")).
		Return(repository.ErrInsufficientFunds)

	_, err := svc.CreateJob(ctx, CreateJobInput{
		ClientID:    uuid.New(),
		Title:       "Починить крышу",
		Description: "Заменить листы кровли на гараже",
		FixedPrice:  40000,
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsInsufficientFunds(err))
}

func TestJobService_AcceptApplication_NotOwner(t *testing.T) {
	svc, repo, _, _ := newJobService()
	ctx := context.Background()

	job := &models.JobRequest{ID: uuid.New(), ClientID: uuid.New(), Status: models.JobStatusOpen}
	repo.On("GetByID", ctx, job.ID).Return(job, nil)

	err := svc.AcceptApplication(ctx, job.ID, uuid.New(), uuid.New())
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestJobService_AcceptApplication_Success(t *testing.T) {
	svc, repo, apps, notifier := newJobService()
	ctx := context.Background()

	clientID := uuid.New()
	apprenticeID := uuid.New()
	job := &models.JobRequest{ID: uuid.New(), ClientID: clientID, Status: models.JobStatusOpen}
	app := &models.JobApplication{ID: uuid.New(), JobRequestID: job.ID, ApprenticeID: apprenticeID}

	repo.On("GetByID", ctx, job.ID).Return(job, nil)
	apps.On("GetByID", ctx, app.ID).Return(app, nil)
	repo.On("AcceptApplication", ctx, job.ID, app.ID, apprenticeID).Return(nil)
	notifier.On("NotifyApplicationStatus", app, models.ApplicationStatusAccepted).Return()

	err := svc.AcceptApplication(ctx, job.ID, app.ID, clientID)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestJobService_ApproveReview_Idempotent(t *testing.T) {
	svc, repo, _, notifier := newJobService()
	ctx := context.Background()

	clientID := uuid.New()
	apprenticeID := uuid.New()
	job := &models.JobRequest{
		ID:                   uuid.New(),
		ClientID:             clientID,
		AssignedApprenticeID: &apprenticeID,
		Status:               models.JobStatusPendingReview,
	}

	repo.On("GetByID", ctx, job.ID).Return(job, nil)
	// Повторное одобрение: выплата уже проведена.
	repo.On("ApproveWithPayout", ctx, job.ID).Return(true, nil)

	err := svc.ApproveReview(ctx, job.ID, clientID)
	assert.NoError(t, err)
	notifier.AssertNotCalled(t, "NotifyJobAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestJobService_ApproveReview_PayoutFailure(t *testing.T) {
	svc, repo, _, _ := newJobService()
	ctx := context.Background()

	clientID := uuid.New()
	job := &models.JobRequest{ID: uuid.New(), ClientID: clientID, Status: models.JobStatusPendingReview}

	repo.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("ApproveWithPayout", ctx, job.ID).Return(false, assert.AnError)

	err := svc.ApproveReview(ctx, job.ID, clientID)
	assert.Error(t, err)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodePayoutFailed, appErr.Code)
}

func TestJobService_DeleteJob_NotDeletable(t *testing.T) {
	svc, repo, _, _ := newJobService()
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	repo.On("DeleteWithRefund", ctx, jobID, clientID).Return(repository.ErrJobNotDeletable)

	err := svc.DeleteJob(ctx, jobID, clientID)
	assert.Error(t, err)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}
