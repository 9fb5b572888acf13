package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/craftlink/craftlink-backend/internal/logger"
	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/pkg/apperror"
	"github.com/craftlink/craftlink-backend/internal/repository"
)

// Размеры выборок ленты активности.
const (
	activityPerSource = 5
	activityFeedLimit = 10
)

// AdminRepository описывает агрегатные чтения для админ-панели.
type AdminRepository interface {
	CountJobsByStatus(ctx context.Context, status string) (int, error)
	SumHeldEscrow(ctx context.Context) (float64, error)
	CountPendingWithdrawals(ctx context.Context) (int, error)
	RecentJobs(ctx context.Context, limit int) ([]models.ActivityItem, error)
	RecentUsers(ctx context.Context, limit int) ([]models.ActivityItem, error)
	RecentDisputes(ctx context.Context, limit int) ([]models.ActivityItem, error)
	RecentWithdrawals(ctx context.Context, limit int) ([]models.ActivityItem, error)
}

// UserRepoForAdmin считает пользователей.
type UserRepoForAdmin interface {
	CountUsers(ctx context.Context) (int, error)
}

// DisputeRepoForAdmin считает открытые споры.
type DisputeRepoForAdmin interface {
	CountOpen(ctx context.Context) (int, error)
}

// WalletRepoForAdmin обрабатывает заявки на вывод средств.
type WalletRepoForAdmin interface {
	ListPendingWithdrawals(ctx context.Context, limit, offset int) ([]models.Withdrawal, error)
	CompleteWithdrawal(ctx context.Context, id uuid.UUID) error
	RejectWithdrawal(ctx context.Context, id uuid.UUID, reason string) error
}

// AdminService собирает сводку для админ-панели.
// Источники читаются параллельно; ошибка одного источника
// деградирует его показатель до нуля, не валя всю сводку.
type AdminService struct {
	repo     AdminRepository
	users    UserRepoForAdmin
	disputes DisputeRepoForAdmin
	wallets  WalletRepoForAdmin
}

func NewAdminService(repo AdminRepository, users UserRepoForAdmin, disputes DisputeRepoForAdmin, wallets WalletRepoForAdmin) *AdminService {
	return &AdminService{repo: repo, users: users, disputes: disputes, wallets: wallets}
}

// GetDashboardStats возвращает сводные показатели платформы.
func (s *AdminService) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	var wg sync.WaitGroup
	read := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				logger.Log.WithField("source", name).WithError(err).Warn("admin service: источник сводки недоступен")
			}
		}()
	}

	read("users", func() error {
		n, err := s.users.CountUsers(ctx)
		if err != nil {
			return err
		}
		stats.TotalUsers = n
		return nil
	})
	read("jobs_in_progress", func() error {
		n, err := s.repo.CountJobsByStatus(ctx, models.JobStatusInProgress)
		if err != nil {
			return err
		}
		stats.JobsInProgress = n
		return nil
	})
	read("held_escrow", func() error {
		sum, err := s.repo.SumHeldEscrow(ctx)
		if err != nil {
			return err
		}
		stats.HeldEscrowNGN = sum
		return nil
	})
	read("pending_reviews", func() error {
		n, err := s.repo.CountJobsByStatus(ctx, models.JobStatusPendingReview)
		if err != nil {
			return err
		}
		stats.PendingReviews = n
		return nil
	})
	read("pending_withdrawals", func() error {
		n, err := s.repo.CountPendingWithdrawals(ctx)
		if err != nil {
			return err
		}
		stats.PendingWithdrawals = n
		return nil
	})
	read("open_disputes", func() error {
		n, err := s.disputes.CountOpen(ctx)
		if err != nil {
			return err
		}
		stats.OpenDisputes = n
		return nil
	})

	wg.Wait()
	return stats, nil
}

// GetActivityFeed возвращает объединённую ленту последних событий:
// по пять последних записей из каждого источника, слитые по времени,
// не более десяти в итоге.
func (s *AdminService) GetActivityFeed(ctx context.Context) ([]models.ActivityItem, error) {
	sources := []func(context.Context, int) ([]models.ActivityItem, error){
		s.repo.RecentJobs,
		s.repo.RecentUsers,
		s.repo.RecentDisputes,
		s.repo.RecentWithdrawals,
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		items []models.ActivityItem
	)

	for _, src := range sources {
		wg.Add(1)
		go func(fn func(context.Context, int) ([]models.ActivityItem, error)) {
			defer wg.Done()
			batch, err := fn(ctx, activityPerSource)
			if err != nil {
				logger.Log.WithError(err).Warn("admin service: источник ленты недоступен")
				return
			}
			mu.Lock()
			items = append(items, batch...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > activityFeedLimit {
		items = items[:activityFeedLimit]
	}
	return items, nil
}

// ListPendingWithdrawals возвращает ожидающие заявки на вывод.
func (s *AdminService) ListPendingWithdrawals(ctx context.Context, limit, offset int) ([]models.Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.wallets.ListPendingWithdrawals(ctx, limit, offset)
}

// CompleteWithdrawal помечает заявку на вывод выполненной.
func (s *AdminService) CompleteWithdrawal(ctx context.Context, id uuid.UUID) error {
	if err := s.wallets.CompleteWithdrawal(ctx, id); err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "заявка на вывод не найдена или уже обработана")
		}
		return fmt.Errorf("admin service: подтверждение вывода: %w", err)
	}
	return nil
}

// RejectWithdrawal отклоняет заявку на вывод с возвратом средств.
func (s *AdminService) RejectWithdrawal(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return apperror.New(apperror.ErrCodeValidation, "причина отклонения обязательна")
	}
	if err := s.wallets.RejectWithdrawal(ctx, id, reason); err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "заявка на вывод не найдена или уже обработана")
		}
		return fmt.Errorf("admin service: отклонение вывода: %w", err)
	}
	return nil
}
