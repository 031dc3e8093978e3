package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notification is one append-only entry in a user's notification log. The
// read flag only ever moves unread -> read.
type Notification struct {
	ID        int             `json:"id"`
	UserID    int             `json:"user_id"`
	Kind      string          `json:"kind"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"` // UTC
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	GetNotification(ctx context.Context, id int) (Notification, error)
	QueryUserNotifications(ctx context.Context, userID int) ([]Notification, error)
	// MarkNotificationRead sets the read flag; it never clears it.
	MarkNotificationRead(ctx context.Context, id int) error
	MarkAllNotificationsRead(ctx context.Context, userID int) error
}

// NotificationService exposes a user's notification log to the API.
type NotificationService struct {
	repo NotificationRepository
}

func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (svc *NotificationService) QueryForUser(ctx context.Context, userID int) ([]Notification, error) {
	return svc.repo.QueryUserNotifications(ctx, userID)
}

// MarkRead marks one of the user's own notifications as read. Marking an
// already-read notification is a no-op.
func (svc *NotificationService) MarkRead(ctx context.Context, id, userID int) error {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotificationNotFound
	}
	if n.IsRead {
		return nil
	}
	return svc.repo.MarkNotificationRead(ctx, id)
}

func (svc *NotificationService) MarkAllRead(ctx context.Context, userID int) error {
	return svc.repo.MarkAllNotificationsRead(ctx, userID)
}
