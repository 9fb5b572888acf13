package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/pkg/apperror"
	"github.com/craftlink/craftlink-backend/internal/repository"
)

type mockWalletRepo struct {
	mock.Mock
}

func (m *mockWalletRepo) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletRepo) Deposit(ctx context.Context, userID uuid.UUID, amount float64, reference, description string) (*models.WalletTransaction, error) {
	args := m.Called(ctx, userID, amount, reference, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *mockWalletRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.WalletTransaction), args.Error(1)
}

func (m *mockWalletRepo) CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount float64, bankName, accountLast4 string) (*models.Withdrawal, error) {
	args := m.Called(ctx, userID, amount, bankName, accountLast4)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *mockWalletRepo) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Withdrawal), args.Error(1)
}

func TestWalletService_Deposit_Success(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Deposit", ctx, userID, 5000.0,
		mock.MatchedBy(func(ref string) bool { return strings.HasPrefix(ref, "deposit_") }),
		mock.AnythingOfType("string"),
	).Return(&models.WalletTransaction{ID: uuid.New(), AmountNGN: 5000}, nil)

	tx, err := svc.Deposit(ctx, userID, 5000)
	assert.NoError(t, err)
	assert.Equal(t, 5000.0, tx.AmountNGN)
	repo.AssertExpectations(t)
}

func TestWalletService_Deposit_NonPositiveAmount(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	for _, amount := range []float64{0, -100} {
		_, err := svc.Deposit(context.Background(), uuid.New(), amount)
		assert.True(t, apperror.IsValidation(err))
	}
	repo.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWalletService_RequestWithdrawal_InsufficientFunds(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("CreateWithdrawal", ctx, userID, 100000.0, "GTBank", "1234").
		Return(nil, repository.ErrInsufficientFunds)

	_, err := svc.RequestWithdrawal(ctx, userID, 100000, "GTBank", "1234")
	assert.True(t, apperror.IsInsufficientFunds(err))
}

func TestWalletService_RequestWithdrawal_RequiresBank(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	_, err := svc.RequestWithdrawal(context.Background(), uuid.New(), 5000, "", "1234")
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "CreateWithdrawal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWalletService_ListTransactions_LimitClamped(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListTransactions", ctx, userID, 20, 0).Return([]models.WalletTransaction{}, nil)

	_, err := svc.ListTransactions(ctx, userID, 500, 0)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
