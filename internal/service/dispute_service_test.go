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

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetOpenByJob(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Dispute, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID) error {
	args := m.Called(ctx, id, resolution, resolvedBy)
	return args.Error(0)
}

func (m *mockDisputeRepo) Close(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockJobRepoForDispute struct {
	mock.Mock
}

func (m *mockJobRepoForDispute) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobRequest), args.Error(1)
}

func assignedJob(clientID, apprenticeID uuid.UUID) *models.JobRequest {
	return &models.JobRequest{
		ID:                   uuid.New(),
		ClientID:             clientID,
		AssignedApprenticeID: &apprenticeID,
		Status:               models.JobStatusInProgress,
	}
}

func newDisputeService() (*DisputeService, *mockDisputeRepo, *mockJobRepoForDispute) {
	repo := new(mockDisputeRepo)
	jobs := new(mockJobRepoForDispute)
	return NewDisputeService(repo, jobs), repo, jobs
}

func TestDisputeService_RaiseDispute_Success(t *testing.T) {
	svc, repo, jobs := newDisputeService()
	ctx := context.Background()

	clientID := uuid.New()
	apprenticeID := uuid.New()
	job := assignedJob(clientID, apprenticeID)

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("GetOpenByJob", ctx, job.ID).Return(nil, repository.ErrDisputeNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Dispute")).Return(nil)

	dispute, err := svc.RaiseDispute(ctx, job.ID, apprenticeID, "работа не соответствует описанию")
	assert.NoError(t, err)
	assert.Equal(t, clientID, dispute.MemberID)
	assert.Equal(t, apprenticeID, dispute.ApprenticeID)
	assert.Equal(t, apprenticeID, dispute.RaisedBy)
}

func TestDisputeService_RaiseDispute_PartyOnly(t *testing.T) {
	svc, repo, jobs := newDisputeService()
	ctx := context.Background()

	job := assignedJob(uuid.New(), uuid.New())
	jobs.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.RaiseDispute(ctx, job.ID, uuid.New(), "сторонний пользователь")
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDisputeService_RaiseDispute_NoAssignee(t *testing.T) {
	svc, _, jobs := newDisputeService()
	ctx := context.Background()

	clientID := uuid.New()
	job := &models.JobRequest{ID: uuid.New(), ClientID: clientID, Status: models.JobStatusOpen}
	jobs.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.RaiseDispute(ctx, job.ID, clientID, "нет исполнителя")
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestDisputeService_RaiseDispute_AlreadyOpen(t *testing.T) {
	svc, repo, jobs := newDisputeService()
	ctx := context.Background()

	clientID := uuid.New()
	apprenticeID := uuid.New()
	job := assignedJob(clientID, apprenticeID)

	jobs.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("GetOpenByJob", ctx, job.ID).Return(&models.Dispute{ID: uuid.New()}, nil)

	_, err := svc.RaiseDispute(ctx, job.ID, clientID, "повторный спор")
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDisputeService_GetDispute_AccessControl(t *testing.T) {
	svc, repo, _ := newDisputeService()
	ctx := context.Background()

	dispute := &models.Dispute{ID: uuid.New(), MemberID: uuid.New(), ApprenticeID: uuid.New()}
	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.GetDispute(ctx, dispute.ID, dispute.MemberID, models.RoleMember)
	assert.NoError(t, err)

	_, err = svc.GetDispute(ctx, dispute.ID, uuid.New(), models.RoleAdmin)
	assert.NoError(t, err)

	_, err = svc.GetDispute(ctx, dispute.ID, uuid.New(), models.RoleMember)
	assert.True(t, apperror.IsForbidden(err))
}

func TestDisputeService_ResolveDispute_AdminOnly(t *testing.T) {
	svc, repo, _ := newDisputeService()
	ctx := context.Background()

	err := svc.ResolveDispute(ctx, uuid.New(), uuid.New(), models.RoleMember, models.DisputeResolutionFavorMember)
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_ResolveDispute_InvalidResolution(t *testing.T) {
	svc, _, _ := newDisputeService()
	ctx := context.Background()

	err := svc.ResolveDispute(ctx, uuid.New(), uuid.New(), models.RoleAdmin, "split")
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_ResolveDispute_AlreadyResolved(t *testing.T) {
	svc, repo, _ := newDisputeService()
	ctx := context.Background()

	adminID := uuid.New()
	disputeID := uuid.New()
	repo.On("Resolve", ctx, disputeID, models.DisputeResolutionFavorApprentice, adminID).Return(repository.ErrDisputeNotOpen)

	err := svc.ResolveDispute(ctx, disputeID, adminID, models.RoleAdmin, models.DisputeResolutionFavorApprentice)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}
