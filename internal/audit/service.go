package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
)

// Recorder appends audit entries describing order lifecycle changes.
type Recorder interface {
	Record(ctx context.Context, input RecordInput) (*models.OrderAuditEntry, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderAuditEntry, error)
}

// RecordInput captures the immutable data an audit entry requires.
type RecordInput struct {
	OrderID uuid.UUID         `json:"order_id"`
	ActorID uuid.UUID         `json:"actor_id"`
	Action  enums.AuditAction `json:"action"`
	Payload any               `json:"payload"`
}

type service struct {
	repo Repository
}

// NewRecorder wires an audit recorder with the provided repository.
func NewRecorder(repo Repository) (Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.OrderAuditEntry, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid audit action %q", input.Action)
	}

	var payload json.RawMessage
	if input.Payload != nil {
		raw, err := json.Marshal(input.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal audit payload: %w", err)
		}
		payload = raw
	}

	entry := &models.OrderAuditEntry{
		OrderID: input.OrderID,
		ActorID: input.ActorID,
		Action:  input.Action,
		Payload: payload,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderAuditEntry, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}
