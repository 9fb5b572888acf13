package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/craftlink/craftlink-backend/internal/goroutine"
	"github.com/craftlink/craftlink-backend/internal/logger"
	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/repository"
	"github.com/craftlink/craftlink-backend/internal/validation"
)

// Баллы за приглашённого пользователя.
const referralAwardPoints = 100

// Параметры повторных чтений профиля.
const (
	profileFetchAttempts = 3
	profileFetchDelay    = time.Second
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	AwardReferralPoints(ctx context.Context, userID uuid.UUID, points int) error
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, refreshToken string) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
}

// WalletRepoForAuth создаёт нулевой кошелёк при регистрации.
type WalletRepoForAuth interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	wallets      WalletRepoForAuth
	tokenManager *TokenManager
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email        string
	Password     string
	Username     string
	Role         string
	DisplayName  string
	ReferralCode string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User
	Profile   *models.Profile
	TokenPair *TokenPair
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, wallets WalletRepoForAuth, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		repo:         repo,
		wallets:      wallets,
		tokenManager: tokenManager,
	}
}

// Register создаёт нового пользователя, профиль и нулевой кошелёк.
// Если указан реферальный код, его владельцу начисляются баллы.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	if _, ok := models.ValidRoles[in.Role]; !ok {
		return nil, fmt.Errorf("auth service: недопустимая роль %q", in.Role)
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("auth service: email уже зарегистрирован")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	username := in.Username
	if username == "" {
		username = deriveUsername(in.Email)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(in.Email),
		Username:     username,
		PasswordHash: string(passHash),
		Role:         in.Role,
		ReferralCode: newReferralCode(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, fmt.Errorf("auth service: email или имя пользователя уже заняты")
		}
		return nil, err
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = username
	}

	profile := &models.Profile{
		UserID:      user.ID,
		DisplayName: displayName,
		Skills:      []string{},
	}

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	// Кошелёк заводится сразу, чтобы escrow-операции не спотыкались
	// о его отсутствие.
	if _, err := s.wallets.GetWallet(ctx, user.ID); err != nil {
		logger.Log.WithField("user_id", user.ID).WithError(err).Warn("auth service: не удалось создать кошелёк")
	}

	if in.ReferralCode != "" {
		s.awardReferral(in.ReferralCode, user.ID)
	}

	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.storeSession(ctx, user.ID, tokenPair.RefreshToken, refreshExp, meta); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:      user,
		Profile:   profile,
		TokenPair: tokenPair,
	}, nil
}

// Login проверяет учётные данные и возвращает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(in.Email))
	if err != nil {
		return nil, fmt.Errorf("auth service: неверный email или пароль")
	}

	if !user.IsActive {
		return nil, fmt.Errorf("auth service: аккаунт заблокирован")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, fmt.Errorf("auth service: неверный email или пароль")
	}

	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.Log.WithField("user_id", user.ID).WithError(err).Warn("auth service: не удалось обновить last_login_at")
	}

	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.storeSession(ctx, user.ID, tokenPair.RefreshToken, refreshExp, meta); err != nil {
		return nil, err
	}

	profile, err := s.GetProfile(ctx, user.ID)
	if err != nil {
		profile = nil
	}

	return &AuthResult{
		User:      user,
		Profile:   profile,
		TokenPair: tokenPair,
	}, nil
}

// Refresh выпускает новую пару токенов по действующей сессии.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta map[string]string) (*TokenPair, error) {
	if _, err := s.tokenManager.ParseRefresh(oldToken); err != nil {
		return nil, fmt.Errorf("auth service: refresh токен невалиден: %w", err)
	}

	session, err := s.repo.GetSessionByToken(ctx, oldToken)
	if err != nil {
		return nil, fmt.Errorf("auth service: сессия не найдена или истекла")
	}

	user, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSession(ctx, oldToken); err != nil {
		return nil, err
	}

	if err := s.storeSession(ctx, user.ID, tokenPair.RefreshToken, refreshExp, meta); err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Logout удаляет сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteSession(ctx, refreshToken)
}

// GetProfile читает профиль пользователя с повторными попытками.
// Первые неудачи перечитываются с паузой в секунду, после исчерпания
// попыток возвращается последняя ошибка.
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var lastErr error
	for attempt := 1; attempt <= profileFetchAttempts; attempt++ {
		profile, err := s.repo.GetProfile(ctx, userID)
		if err == nil {
			return profile, nil
		}
		lastErr = err
		if errors.Is(err, repository.ErrProfileNotFound) {
			break
		}
		if attempt < profileFetchAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(profileFetchDelay):
			}
		}
	}
	return nil, fmt.Errorf("auth service: профиль недоступен: %w", lastErr)
}

// UpdateProfile сохраняет изменения профиля.
func (s *AuthService) UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if err := validation.ValidateDisplayName(profile.DisplayName); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if err := validation.ValidateSkills(profile.Skills); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// awardReferral начисляет баллы владельцу реферального кода в фоне.
// Неудача не мешает регистрации.
func (s *AuthService) awardReferral(code string, newUserID uuid.UUID) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		owner, err := s.repo.GetByReferralCode(ctx, code)
		if err != nil {
			logger.Log.WithField("code", code).Debug("auth service: реферальный код не найден")
			return
		}
		if owner.ID == newUserID {
			return
		}
		if err := s.repo.AwardReferralPoints(ctx, owner.ID, referralAwardPoints); err != nil {
			logger.Log.WithField("user_id", owner.ID).WithError(err).Warn("auth service: не удалось начислить реферальные баллы")
		}
	})
}

func (s *AuthService) storeSession(ctx context.Context, userID uuid.UUID, refreshToken string, expiresAt time.Time, meta map[string]string) error {
	session := &models.Session{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
	if meta != nil {
		if ua, ok := meta["user_agent"]; ok {
			session.UserAgent = &ua
		}
		if ip, ok := meta["ip"]; ok {
			session.IPAddress = &ip
		}
	}
	return s.repo.CreateSession(ctx, session)
}

// deriveUsername строит имя пользователя из локальной части email.
func deriveUsername(email string) string {
	local := strings.SplitN(email, "@", 2)[0]
	local = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, local)
	if len(local) < validation.MinUsernameLength {
		local = "user_" + local
	}
	return local
}

// newReferralCode генерирует короткий случайный реферальный код.
func newReferralCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return strings.ToUpper(hex.EncodeToString([]byte(uuid.NewString()[:4])))
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
