package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *mockAuthRepo) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockAuthRepo) AwardReferralPoints(ctx context.Context, userID uuid.UUID, points int) error {
	args := m.Called(ctx, userID, points)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockWalletRepoForAuth struct {
	mock.Mock
}

func (m *mockWalletRepoForAuth) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func newAuthService() (*AuthService, *mockAuthRepo, *mockWalletRepoForAuth) {
	repo := new(mockAuthRepo)
	wallets := new(mockWalletRepoForAuth)
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
	return NewAuthService(repo, wallets, tm), repo, wallets
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, repo, wallets := newAuthService()
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "master@example.com").Return(nil, repository.ErrUserNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	repo.On("UpsertProfile", ctx, mock.AnythingOfType("*models.Profile")).Return(nil)
	wallets.On("GetWallet", ctx, mock.AnythingOfType("uuid.UUID")).Return(&models.Wallet{}, nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	res, err := svc.Register(ctx, RegisterInput{
		Email:    "master@example.com",
		Password: "Str0ngPass",
		Role:     models.RoleMember,
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "master", res.User.Username)
	assert.Equal(t, models.RoleMember, res.User.Role)
	assert.NotEmpty(t, res.User.ReferralCode)
	assert.NotEmpty(t, res.TokenPair.AccessToken)
	assert.NotEmpty(t, res.TokenPair.RefreshToken)
	wallets.AssertExpectations(t)
}

func TestAuthService_Register_InvalidRole(t *testing.T) {
	svc, repo, _ := newAuthService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "master@example.com",
		Password: "Str0ngPass",
		Role:     "superuser",
	}, nil)

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, repo, _ := newAuthService()
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "taken@example.com").Return(&models.User{ID: uuid.New()}, nil)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "taken@example.com",
		Password: "Str0ngPass",
		Role:     models.RoleApprentice,
	}, nil)

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc, repo, _ := newAuthService()

	for _, password := range []string{"short", "alllowercase1", "NOUPPER", "NoDigits"} {
		_, err := svc.Register(context.Background(), RegisterInput{
			Email:    "master@example.com",
			Password: password,
			Role:     models.RoleMember,
		}, nil)
		assert.Error(t, err, "password %q should be rejected", password)
	}
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, repo, _ := newAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass"), bcrypt.MinCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "master@example.com",
		Username:     "master",
		PasswordHash: string(hash),
		Role:         models.RoleMember,
		IsActive:     true,
	}

	repo.On("GetByEmail", ctx, "master@example.com").Return(user, nil)
	repo.On("UpdateLastLoginAt", ctx, user.ID).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)
	repo.On("GetProfile", ctx, user.ID).Return(&models.Profile{UserID: user.ID, DisplayName: "master"}, nil)

	res, err := svc.Login(ctx, LoginInput{Email: "master@example.com", Password: "Str0ngPass"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.TokenPair.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, repo, _ := newAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass"), bcrypt.MinCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "master@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
	}

	repo.On("GetByEmail", ctx, "master@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "master@example.com", Password: "WrongPass1"}, nil)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	svc, repo, _ := newAuthService()
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "blocked@example.com").Return(&models.User{ID: uuid.New(), IsActive: false}, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "blocked@example.com", Password: "Str0ngPass"}, nil)
	assert.Error(t, err)
}

func TestAuthService_GetProfile_StopsOnNotFound(t *testing.T) {
	svc, repo, _ := newAuthService()
	ctx := context.Background()
	userID := uuid.New()

	// На ErrProfileNotFound повторов не будет.
	repo.On("GetProfile", ctx, userID).Return(nil, repository.ErrProfileNotFound).Once()

	start := time.Now()
	_, err := svc.GetProfile(ctx, userID)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), profileFetchDelay)
	repo.AssertExpectations(t)
}

func TestAuthService_Refresh_UnknownSession(t *testing.T) {
	svc, repo, _ := newAuthService()
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleMember}
	pair, _, _, err := svc.tokenManager.GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(nil, repository.ErrSessionNotFound)

	_, err = svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.Error(t, err)
}
