package performance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"appraisal/internal/domain/audit"
	"appraisal/internal/platform/lov"
	"appraisal/internal/platform/requestctx"
)

type Notifier interface {
	Notify(ctx context.Context, personNumber, ntype, title, body string)
}

// Counter receives engine level counters.
type Counter interface {
	RecordLaunch()
	RecordSubmission(advanced bool)
}

type Service struct {
	store   StoreAPI
	config  ConfigStore
	LOV     lov.Values
	Audit   audit.Recorder
	Notify  Notifier
	Metrics Counter
	NewID   func() string
	Now     func() time.Time
}

func NewService(store StoreAPI, config ConfigStore, values lov.Values) *Service {
	return &Service{
		store:  store,
		config: config,
		LOV:    values,
		NewID:  uuid.NewString,
		Now:    time.Now,
	}
}

func (s *Service) record(ctx context.Context, actor Actor, action, entityType, entityID string, details any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, actor.UserID, action, entityType, entityID, actor.RequestID, details); err != nil {
		requestctx.Logger(ctx).Warn("audit "+action+" failed", "entityId", entityID, "err", err)
	}
}

func (s *Service) notify(ctx context.Context, personNumber, ntype, title, body string) {
	if s.Notify == nil || personNumber == "" {
		return
	}
	s.Notify.Notify(ctx, personNumber, ntype, title, body)
}
