package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tmonsalve/aula/core/notify"
)

type notificationRow struct {
	ID        int             `db:"id"`
	UserID    int             `db:"user_id"`
	Kind      string          `db:"kind"`
	Message   string          `db:"message"`
	Data      json.RawMessage `db:"data"`
	IsRead    bool            `db:"is_read"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r notificationRow) toNotification() notify.Notification {
	return notify.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      r.Kind,
		Message:   r.Message,
		Data:      r.Data,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

const notificationCols = `id, user_id, kind, message, data, is_read, created_at`

type NotificationRepository struct {
	db *sqlx.DB
}

var _ notify.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (repo *NotificationRepository) CreateNotification(ctx context.Context, n notify.Notification) (notify.Notification, error) {
	q := `
		INSERT INTO notification (user_id, kind, message, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, n.UserID, n.Kind, n.Message, n.Data, n.IsRead, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		return notify.Notification{}, errors.Wrap(err, "creating notification")
	}
	return n, nil
}

func (repo *NotificationRepository) GetNotification(ctx context.Context, id int) (notify.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+notificationCols+` FROM notification WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return notify.Notification{}, notify.ErrNotificationNotFound
	} else if err != nil {
		return notify.Notification{}, errors.Wrap(err, "getting notification")
	}
	return row.toNotification(), nil
}

func (repo *NotificationRepository) QueryUserNotifications(ctx context.Context, userID int) ([]notify.Notification, error) {
	var rows []notificationRow
	q := `SELECT ` + notificationCols + ` FROM notification WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying user notifications")
	}
	ntfs := make([]notify.Notification, len(rows))
	for i, row := range rows {
		ntfs[i] = row.toNotification()
	}
	return ntfs, nil
}

func (repo *NotificationRepository) MarkNotificationRead(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, `UPDATE notification SET is_read = TRUE WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return nil
}

func (repo *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, userID int) error {
	q := `UPDATE notification SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`
	if _, err := repo.db.ExecContext(ctx, q, userID); err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return nil
}
