package notifications

import (
	"context"

	"appraisal/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateNotification(ctx context.Context, personNumber, ntype, title, body string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (person_number, type, title, body)
    VALUES ($1,$2,$3,$4)
  `, personNumber, ntype, title, body)
	return err
}

func (s *Store) PersonEmail(ctx context.Context, personNumber string) (string, error) {
	var email string
	if err := s.DB.QueryRow(ctx, "SELECT email FROM employees WHERE person_number = $1", personNumber).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

func (s *Store) ListNotifications(ctx context.Context, personNumber string, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, type, title, body, read_at, created_at
    FROM notifications
    WHERE person_number = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, personNumber, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, personNumber string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE person_number = $1", personNumber).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, personNumber, notificationID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE person_number = $1 AND id = $2 AND read_at IS NULL
  `, personNumber, notificationID)
	return err
}
