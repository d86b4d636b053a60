package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, personNumber, ntype, title, body string) error
	PersonEmail(ctx context.Context, personNumber string) (string, error)
	ListNotifications(ctx context.Context, personNumber string, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, personNumber string) (int, error)
	MarkRead(ctx context.Context, personNumber, notificationID string) error
}
