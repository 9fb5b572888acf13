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

// WalletRepository описывает зависимости WalletService от слоя хранилища.
type WalletRepository interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount float64, reference, description string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
	CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount float64, bankName, accountLast4 string) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error)
}

// WalletService отвечает за баланс, пополнения и выводы средств.
type WalletService struct {
	repo WalletRepository
}

func NewWalletService(repo WalletRepository) *WalletService {
	return &WalletService{repo: repo}
}

// GetWallet возвращает кошелёк пользователя.
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.repo.GetWallet(ctx, userID)
}

// Deposit пополняет кошелёк пользователя.
func (s *WalletService) Deposit(ctx context.Context, userID uuid.UUID, amount float64) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	reference := "deposit_" + uuid.NewString()
	return s.repo.Deposit(ctx, userID, amount, reference, "Пополнение кошелька")
}

// ListTransactions возвращает историю движения средств.
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// RequestWithdrawal создаёт заявку на вывод заработанных средств.
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount float64, bankName, accountLast4 string) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if bankName == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "банк обязателен")
	}

	withdrawal, err := s.repo.CreateWithdrawal(ctx, userID, amount, bankName, accountLast4)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, apperror.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("wallet service: вывод средств: %w", err)
	}
	return withdrawal, nil
}

// ListWithdrawals возвращает заявки пользователя на вывод средств.
func (s *WalletService) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListWithdrawals(ctx, userID, limit, offset)
}
