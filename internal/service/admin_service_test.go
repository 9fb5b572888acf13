package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/craftlink/craftlink-backend/internal/logger"
	"github.com/craftlink/craftlink-backend/internal/models"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

type mockAdminRepo struct {
	mock.Mock
}

func (m *mockAdminRepo) CountJobsByStatus(ctx context.Context, status string) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *mockAdminRepo) SumHeldEscrow(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockAdminRepo) CountPendingWithdrawals(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockAdminRepo) RecentJobs(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ActivityItem), args.Error(1)
}

func (m *mockAdminRepo) RecentUsers(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ActivityItem), args.Error(1)
}

func (m *mockAdminRepo) RecentDisputes(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ActivityItem), args.Error(1)
}

func (m *mockAdminRepo) RecentWithdrawals(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ActivityItem), args.Error(1)
}

type mockUserRepoForAdmin struct {
	mock.Mock
}

func (m *mockUserRepoForAdmin) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockDisputeRepoForAdmin struct {
	mock.Mock
}

func (m *mockDisputeRepoForAdmin) CountOpen(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockWalletRepoForAdmin struct {
	mock.Mock
}

func (m *mockWalletRepoForAdmin) ListPendingWithdrawals(ctx context.Context, limit, offset int) ([]models.Withdrawal, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Withdrawal), args.Error(1)
}

func (m *mockWalletRepoForAdmin) CompleteWithdrawal(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockWalletRepoForAdmin) RejectWithdrawal(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func newAdminService() (*AdminService, *mockAdminRepo, *mockUserRepoForAdmin, *mockDisputeRepoForAdmin) {
	repo := new(mockAdminRepo)
	users := new(mockUserRepoForAdmin)
	disputes := new(mockDisputeRepoForAdmin)
	return NewAdminService(repo, users, disputes, new(mockWalletRepoForAdmin)), repo, users, disputes
}

func TestAdminService_GetDashboardStats(t *testing.T) {
	svc, repo, users, disputes := newAdminService()
	ctx := context.Background()

	users.On("CountUsers", ctx).Return(120, nil)
	repo.On("CountJobsByStatus", ctx, models.JobStatusInProgress).Return(7, nil)
	repo.On("CountJobsByStatus", ctx, models.JobStatusPendingReview).Return(3, nil)
	repo.On("SumHeldEscrow", ctx).Return(250000.0, nil)
	repo.On("CountPendingWithdrawals", ctx).Return(2, nil)
	disputes.On("CountOpen", ctx).Return(1, nil)

	stats, err := svc.GetDashboardStats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 120, stats.TotalUsers)
	assert.Equal(t, 7, stats.JobsInProgress)
	assert.Equal(t, 250000.0, stats.HeldEscrowNGN)
	assert.Equal(t, 3, stats.PendingReviews)
	assert.Equal(t, 2, stats.PendingWithdrawals)
	assert.Equal(t, 1, stats.OpenDisputes)
}

func TestAdminService_GetDashboardStats_SourceFailureDegradesToZero(t *testing.T) {
	svc, repo, users, disputes := newAdminService()
	ctx := context.Background()

	users.On("CountUsers", ctx).Return(0, assert.AnError)
	repo.On("CountJobsByStatus", ctx, models.JobStatusInProgress).Return(7, nil)
	repo.On("CountJobsByStatus", ctx, models.JobStatusPendingReview).Return(3, nil)
	repo.On("SumHeldEscrow", ctx).Return(0.0, assert.AnError)
	repo.On("CountPendingWithdrawals", ctx).Return(2, nil)
	disputes.On("CountOpen", ctx).Return(1, nil)

	stats, err := svc.GetDashboardStats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.TotalUsers)
	assert.Equal(t, 0.0, stats.HeldEscrowNGN)
	assert.Equal(t, 7, stats.JobsInProgress)
}

func TestAdminService_GetActivityFeed_MergedAndTruncated(t *testing.T) {
	svc, repo, _, _ := newAdminService()
	ctx := context.Background()

	base := time.Now()
	batch := func(source string, n int, offset time.Duration) []models.ActivityItem {
		items := make([]models.ActivityItem, n)
		for i := range items {
			items[i] = models.ActivityItem{
				Source:    source,
				EntityID:  uuid.New(),
				CreatedAt: base.Add(offset - time.Duration(i)*time.Minute),
			}
		}
		return items
	}

	repo.On("RecentJobs", ctx, activityPerSource).Return(batch("job", 5, 0), nil)
	repo.On("RecentUsers", ctx, activityPerSource).Return(batch("user", 5, -time.Hour), nil)
	repo.On("RecentDisputes", ctx, activityPerSource).Return(batch("dispute", 5, -2*time.Hour), nil)
	repo.On("RecentWithdrawals", ctx, activityPerSource).Return([]models.ActivityItem{}, nil)

	feed, err := svc.GetActivityFeed(ctx)
	assert.NoError(t, err)
	assert.Len(t, feed, activityFeedLimit)

	// Лента отсортирована по убыванию времени.
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].CreatedAt.After(feed[i-1].CreatedAt))
	}
	// Самые свежие события — заявки.
	assert.Equal(t, "job", feed[0].Source)
}

func TestAdminService_GetActivityFeed_SourceFailureDegradesToEmpty(t *testing.T) {
	svc, repo, _, _ := newAdminService()
	ctx := context.Background()

	repo.On("RecentJobs", ctx, activityPerSource).Return([]models.ActivityItem{}, assert.AnError)
	repo.On("RecentUsers", ctx, activityPerSource).Return([]models.ActivityItem{
		{Source: "user", EntityID: uuid.New(), CreatedAt: time.Now()},
	}, nil)
	repo.On("RecentDisputes", ctx, activityPerSource).Return([]models.ActivityItem{}, nil)
	repo.On("RecentWithdrawals", ctx, activityPerSource).Return([]models.ActivityItem{}, nil)

	feed, err := svc.GetActivityFeed(ctx)
	assert.NoError(t, err)
	assert.Len(t, feed, 1)
	assert.Equal(t, "user", feed[0].Source)
}
