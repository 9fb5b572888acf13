package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/craftlink/craftlink-backend/internal/goroutine"
	"github.com/craftlink/craftlink-backend/internal/logger"
	"github.com/craftlink/craftlink-backend/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// Pusher доставляет событие в открытые соединения пользователя.
type Pusher interface {
	Push(userID uuid.UUID, event string, data any) error
}

// NotificationService сохраняет уведомления и рассылает их через WebSocket.
// Все отправки выполняются в фоне: сбой уведомления логируется
// и никогда не прерывает породившую его операцию.
type NotificationService struct {
	repo   NotificationRepository
	pusher Pusher
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// NotifyApplicationSubmitted уведомляет участника о новом отклике.
func (s *NotificationService) NotifyApplicationSubmitted(app *models.JobApplication, clientID uuid.UUID) {
	s.dispatch(clientID, models.NotificationApplicationSubmitted, map[string]any{
		"job_request_id": app.JobRequestID,
		"application_id": app.ID,
		"apprentice_id":  app.ApprenticeID,
	})
}

// NotifyApplicationStatus уведомляет подмастерье о смене статуса отклика.
func (s *NotificationService) NotifyApplicationStatus(app *models.JobApplication, status string) {
	s.dispatch(app.ApprenticeID, models.NotificationApplicationStatus, map[string]any{
		"job_request_id": app.JobRequestID,
		"application_id": app.ID,
		"status":         status,
	})
}

// NotifyJobAlert отправляет пользователю произвольное событие по заявке.
func (s *NotificationService) NotifyJobAlert(userID uuid.UUID, jobID uuid.UUID, message string) {
	s.dispatch(userID, models.NotificationJobAlert, map[string]any{
		"job_request_id": jobID,
		"message":        message,
	})
}

// ListNotifications возвращает уведомления пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, userID, limit, offset)
}

// CountUnread возвращает число непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkAsRead отмечает уведомление прочитанным.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

// MarkAllAsRead отмечает прочитанными все уведомления пользователя.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// DeleteNotification удаляет уведомление пользователя.
func (s *NotificationService) DeleteNotification(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.Delete(ctx, id, userID)
}

// dispatch сохраняет уведомление и проталкивает его в WebSocket в фоне.
func (s *NotificationService) dispatch(userID uuid.UUID, event string, data map[string]any) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		payload, err := json.Marshal(map[string]any{
			"event": event,
			"data":  data,
		})
		if err != nil {
			logger.Log.WithField("event", event).WithError(err).Error("notification service: marshal payload")
			return
		}

		notification := &models.Notification{
			ID:      uuid.New(),
			UserID:  userID,
			Payload: payload,
		}
		if err := s.repo.Create(ctx, notification); err != nil {
			logger.Log.WithField("event", event).WithError(err).Warn(
				fmt.Sprintf("notification service: не удалось сохранить уведомление для %s", userID))
		}

		if s.pusher != nil {
			if err := s.pusher.Push(userID, event, data); err != nil {
				logger.Log.WithField("event", event).WithError(err).Debug("notification service: push не доставлен")
			}
		}
	})
}
