package notifications

import (
	"context"
	"log/slog"
	"time"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Dispatcher schedules work off the request path.
type Dispatcher interface {
	Enqueue(jobType, key string, run func(context.Context) error) bool
}

type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	Dispatcher  Dispatcher
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer, dispatcher Dispatcher, from string) *Service {
	if from == "" {
		from = "no-reply@example.com"
	}
	return &Service{store: store, Mailer: mailer, Dispatcher: dispatcher, DefaultFrom: from}
}

// Notify stores an inbox row and emails the person. Failures are logged, never returned.
func (s *Service) Notify(ctx context.Context, personNumber, ntype, title, body string) {
	if personNumber == "" {
		return
	}
	run := func(ctx context.Context) error {
		s.deliver(ctx, personNumber, ntype, title, body)
		return nil
	}
	if s.Dispatcher != nil && s.Dispatcher.Enqueue("notify", personNumber, run) {
		return
	}
	if s.Dispatcher == nil {
		_ = run(ctx)
	}
}

func (s *Service) deliver(ctx context.Context, personNumber, ntype, title, body string) {
	if err := s.store.CreateNotification(ctx, personNumber, ntype, title, body); err != nil {
		slog.Warn("notification insert failed", "personNumber", personNumber, "err", err)
	}
	if s.Mailer == nil {
		return
	}
	email, err := s.store.PersonEmail(ctx, personNumber)
	if err != nil {
		slog.Warn("notification email lookup failed", "personNumber", personNumber, "err", err)
		return
	}
	if email == "" {
		return
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, title, body); err != nil {
		slog.Warn("notification email send failed", "personNumber", personNumber, "err", err)
	}
}

func (s *Service) List(ctx context.Context, personNumber string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, personNumber, limit, offset)
}

func (s *Service) Count(ctx context.Context, personNumber string) (int, error) {
	return s.store.CountNotifications(ctx, personNumber)
}

func (s *Service) MarkRead(ctx context.Context, personNumber, notificationID string) error {
	return s.store.MarkRead(ctx, personNumber, notificationID)
}
