package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/pkg/apperror"
)

type mockSubmissionRepo struct {
	mock.Mock
}

func (m *mockSubmissionRepo) CreateUpdate(ctx context.Context, upd *models.JobUpdate) error {
	args := m.Called(ctx, upd)
	if args.Error(0) == nil {
		upd.VersionNumber = 1
	}
	return args.Error(0)
}

func (m *mockSubmissionRepo) GetUpdateByID(ctx context.Context, id uuid.UUID) (*models.JobUpdate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobUpdate), args.Error(1)
}

func (m *mockSubmissionRepo) ListUpdatesByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobUpdate, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.JobUpdate), args.Error(1)
}

func (m *mockSubmissionRepo) SetUpdateFeedback(ctx context.Context, id uuid.UUID, status string, feedback *string) error {
	args := m.Called(ctx, id, status, feedback)
	return args.Error(0)
}

func (m *mockSubmissionRepo) AcknowledgePendingUpdates(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *mockSubmissionRepo) CreateFinalSubmission(ctx context.Context, sub *models.FinalSubmission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubmissionRepo) GetFinalByID(ctx context.Context, id uuid.UUID) (*models.FinalSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FinalSubmission), args.Error(1)
}

func (m *mockSubmissionRepo) ListFinalByJob(ctx context.Context, jobID uuid.UUID) ([]models.FinalSubmission, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.FinalSubmission), args.Error(1)
}

func (m *mockSubmissionRepo) SetFinalFeedback(ctx context.Context, id uuid.UUID, status string, feedback *string) error {
	args := m.Called(ctx, id, status, feedback)
	return args.Error(0)
}

func (m *mockSubmissionRepo) ApproveFinalWithPayout(ctx context.Context, submissionID uuid.UUID, feedback *string) (bool, error) {
	args := m.Called(ctx, submissionID, feedback)
	return args.Bool(0), args.Error(1)
}

type mockJobRepoForSubmission struct {
	mock.Mock
}

func (m *mockJobRepoForSubmission) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobRequest), args.Error(1)
}

type mockSubmissionNotifier struct {
	mock.Mock
}

func (m *mockSubmissionNotifier) NotifyJobAlert(userID uuid.UUID, jobID uuid.UUID, message string) {
	m.Called(userID, jobID, message)
}

func newSubmissionService() (*SubmissionService, *mockSubmissionRepo, *mockJobRepoForSubmission, *mockSubmissionNotifier) {
	repo := new(mockSubmissionRepo)
	jobs := new(mockJobRepoForSubmission)
	notifier := new(mockSubmissionNotifier)
	return NewSubmissionService(repo, jobs, notifier), repo, jobs, notifier
}

func inProgressJob(clientID, apprenticeID uuid.UUID) *models.JobRequest {
	return &models.JobRequest{
		ID:                   uuid.New(),
		ClientID:             clientID,
		AssignedApprenticeID: &apprenticeID,
		Status:               models.JobStatusInProgress,
	}
}

func TestSubmissionService_SubmitUpdate_OnlyAssigned(t *testing.T) {
	svc, repo, jobs, _ := newSubmissionService()
	ctx := context.Background()

	job := inProgressJob(uuid.New(), uuid.New())
	jobs.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.SubmitUpdate(ctx, job.ID, uuid.New(), "Первый отчёт", nil)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "CreateUpdate", mock.Anything, mock.Anything)
}

func TestSubmissionService_SubmitUpdate_Success(t *testing.T) {
	svc, repo, jobs, notifier := newSubmissionService()
	ctx := context.Background()

	clientID := uuid.New()
	apprenticeID := uuid.New()
	job := inProgressJob(clientID, apprenticeID)

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("CreateUpdate", ctx, mock.AnythingOfType("*models.JobUpdate")).Return(nil)
	notifier.On("NotifyJobAlert", clientID, job.ID, mock.AnythingOfType("string")).Return()

	upd, err := svc.SubmitUpdate(ctx, job.ID, apprenticeID, "Каркас готов", nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, upd.VersionNumber)
}

func TestSubmissionService_ReviewUpdate_FeedbackMapping(t *testing.T) {
	cases := []struct {
		feedbackType string
		wantStatus   string
	}{
		{models.FeedbackTypeApprove, models.JobUpdateStatusApproved},
		{models.FeedbackTypeNeedsChanges, models.JobUpdateStatusNeedsChanges},
		{models.FeedbackTypeRequestRevision, models.JobUpdateStatusNeedsChanges},
		{"что-то ещё", models.JobUpdateStatusAcknowledged},
	}

	for _, tc := range cases {
		svc, repo, jobs, notifier := newSubmissionService()
		ctx := context.Background()

		clientID := uuid.New()
		apprenticeID := uuid.New()
		job := inProgressJob(clientID, apprenticeID)
		upd := &models.JobUpdate{ID: uuid.New(), JobRequestID: job.ID, ApprenticeID: apprenticeID}

		repo.On("GetUpdateByID", ctx, upd.ID).Return(upd, nil)
		jobs.On("GetByID", ctx, job.ID).Return(job, nil)
		repo.On("SetUpdateFeedback", ctx, upd.ID, tc.wantStatus, (*string)(nil)).Return(nil)
		notifier.On("NotifyJobAlert", apprenticeID, job.ID, mock.AnythingOfType("string")).Return()

		err := svc.ReviewUpdate(ctx, upd.ID, clientID, tc.feedbackType, nil)
		assert.NoError(t, err, "feedback type %q", tc.feedbackType)
		repo.AssertExpectations(t)
	}
}

func TestSubmissionService_ReviewFinal_ApproveRunsPayout(t *testing.T) {
	svc, repo, jobs, notifier := newSubmissionService()
	ctx := context.Background()

	clientID := uuid.New()
	apprenticeID := uuid.New()
	job := inProgressJob(clientID, apprenticeID)
	job.Status = models.JobStatusPendingReview
	sub := &models.FinalSubmission{ID: uuid.New(), JobRequestID: job.ID, ApprenticeID: apprenticeID}

	repo.On("GetFinalByID", ctx, sub.ID).Return(sub, nil)
	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("ApproveFinalWithPayout", ctx, sub.ID, (*string)(nil)).Return(false, nil)
	notifier.On("NotifyJobAlert", apprenticeID, job.ID, mock.AnythingOfType("string")).Return()

	err := svc.ReviewFinal(ctx, sub.ID, clientID, models.FeedbackTypeApprove, nil)
	assert.NoError(t, err)
	repo.AssertCalled(t, "ApproveFinalWithPayout", ctx, sub.ID, (*string)(nil))
	repo.AssertNotCalled(t, "SetFinalFeedback", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmissionService_ReviewFinal_SkippedPayoutNoNotify(t *testing.T) {
	svc, repo, jobs, notifier := newSubmissionService()
	ctx := context.Background()

	clientID := uuid.New()
	apprenticeID := uuid.New()
	job := inProgressJob(clientID, apprenticeID)
	sub := &models.FinalSubmission{ID: uuid.New(), JobRequestID: job.ID, ApprenticeID: apprenticeID}

	repo.On("GetFinalByID", ctx, sub.ID).Return(sub, nil)
	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("ApproveFinalWithPayout", ctx, sub.ID, (*string)(nil)).Return(true, nil)

	err := svc.ReviewFinal(ctx, sub.ID, clientID, models.FeedbackTypeApprove, nil)
	assert.NoError(t, err)
	notifier.AssertNotCalled(t, "NotifyJobAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmissionService_ReviewFinal_DisputeSetsDisputed(t *testing.T) {
	svc, repo, jobs, notifier := newSubmissionService()
	ctx := context.Background()

	clientID := uuid.New()
	apprenticeID := uuid.New()
	job := inProgressJob(clientID, apprenticeID)
	sub := &models.FinalSubmission{ID: uuid.New(), JobRequestID: job.ID, ApprenticeID: apprenticeID}

	repo.On("GetFinalByID", ctx, sub.ID).Return(sub, nil)
	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("SetFinalFeedback", ctx, sub.ID, models.FinalSubmissionStatusDisputed, (*string)(nil)).Return(nil)
	notifier.On("NotifyJobAlert", apprenticeID, job.ID, mock.AnythingOfType("string")).Return()

	err := svc.ReviewFinal(ctx, sub.ID, clientID, models.FeedbackTypeDispute, nil)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
