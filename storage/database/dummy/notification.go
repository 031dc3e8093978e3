package dummydb

import (
	"context"
	"sort"

	"github.com/tmonsalve/aula/core/notify"
)

type notificationRepository struct {
	db *table[notify.Notification]
}

var _ notify.NotificationRepository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notify.NotificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notify.Notification) (notify.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = repo.db.nextPK()
	repo.db.rows[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int) (notify.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.rows[id]; ok {
		return *n, nil
	}
	return notify.Notification{}, notify.ErrNotificationNotFound
}

func (repo *notificationRepository) QueryUserNotifications(ctx context.Context, userID int) ([]notify.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ntfs []notify.Notification
	for _, n := range repo.db.query() {
		if n.UserID == userID {
			ntfs = append(ntfs, n)
		}
	}
	sort.Slice(ntfs, func(i, j int) bool {
		if !ntfs[i].CreatedAt.Equal(ntfs[j].CreatedAt) {
			return ntfs[i].CreatedAt.After(ntfs[j].CreatedAt)
		}
		return ntfs[i].ID > ntfs[j].ID
	})
	return ntfs, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if n, ok := repo.db.rows[id]; ok {
		n.IsRead = true
	}
	return nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, userID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, n := range repo.db.rows {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}
