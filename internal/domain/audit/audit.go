package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"appraisal/internal/platform/querier"
)

const (
	ActionLaunch          = "performance.launch"
	ActionLaunchWarning   = "performance.launch.warning"
	ActionAddEmployee     = "performance.add_employee"
	ActionSubmit          = "performance.submit"
	ActionPromote         = "performance.promote"
	ActionReplaceMappings = "performance.appraisers.replace"
	ActionImportMappings  = "performance.appraisers.import"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	CreatedAt  time.Time       `json:"createdAt"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
}

// Recorder is what the engine services depend on.
type Recorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID string, details any) error
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID string, details any) error {
	var detailsJSON []byte
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			return err
		}
		detailsJSON = payload
	}

	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, request_id, details_json)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, actorID, action, entityType, entityID, requestID, detailsJSON)
	return err
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query, args := buildQuery("SELECT id, actor_user_id, action, entity_type, entity_id, request_id, created_at, details_json", filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.CreatedAt, &evt.Details); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE 1=1"
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	return query, args
}
