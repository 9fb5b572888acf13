package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/repository/common"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrProfileNotFound = errors.New("profile not found")
	ErrSessionNotFound = errors.New("session not found")
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет пользователя. Занятый email или username
// упирается в уникальное ограничение.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	err := r.db.GetContext(ctx, u, `
		INSERT INTO users (id, email, username, password_hash, role, referral_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, email, username, password_hash, role, referral_code,
		          is_active, last_login_at, created_at, updated_at
	`, u.ID, u.Email, u.Username, u.PasswordHash, u.Role, u.ReferralCode)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

// GetByReferralCode возвращает пользователя по реферальному коду.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "referral_code", code, ErrUserNotFound)
}

// UpdateLastLoginAt отмечает момент входа пользователя.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1
	`, id)
	return err
}

// CountUsers возвращает общее число пользователей.
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}

// GetProfile возвращает профиль пользователя.
func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT * FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpsertProfile создаёт или обновляет профиль пользователя.
// Счётчики заработка и завершённых работ при обновлении не трогаются.
func (r *UserRepository) UpsertProfile(ctx context.Context, p *models.Profile) error {
	return r.db.GetContext(ctx, p, `
		INSERT INTO profiles (user_id, display_name, bio, skills, location, phone, cv_media_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			bio          = EXCLUDED.bio,
			skills       = EXCLUDED.skills,
			location     = EXCLUDED.location,
			phone        = EXCLUDED.phone,
			cv_media_id  = EXCLUDED.cv_media_id,
			updated_at   = NOW()
		RETURNING user_id, display_name, bio, skills, location, phone, cv_media_id,
		          total_earnings, completed_jobs, referral_points, updated_at
	`, p.UserID, p.DisplayName, p.Bio, p.Skills, p.Location, p.Phone, p.CVMediaID)
}

// AwardReferralPoints начисляет реферальные баллы пользователю.
func (r *UserRepository) AwardReferralPoints(ctx context.Context, userID uuid.UUID, points int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET referral_points = referral_points + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, points)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// CreateSession сохраняет refresh-сессию пользователя.
func (r *UserRepository) CreateSession(ctx context.Context, s *models.Session) error {
	return r.db.GetContext(ctx, s, `
		INSERT INTO sessions (id, user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, refresh_token, user_agent, ip_address, expires_at, created_at
	`, s.ID, s.UserID, s.RefreshToken, s.UserAgent, s.IPAddress, s.ExpiresAt)
}

// GetSessionByToken возвращает действующую сессию по refresh-токену.
func (r *UserRepository) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s, `
		SELECT * FROM sessions WHERE refresh_token = $1 AND expires_at > NOW()
	`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// DeleteSession удаляет сессию по refresh-токену.
func (r *UserRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, token)
	return err
}

// DeleteExpiredSessions удаляет сессии, истёкшие к данному моменту.
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
