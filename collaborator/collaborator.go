// Package collaborator declares the side-effecting services node
// executors call out to. Implementations live outside the engine: the
// messaging gateway, the HTTP client and the contact service of the
// host platform.
package collaborator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/model"
	"go.uber.org/zap"
)

// MessageSender delivers an outbound message on a conversation and
// returns the provider message id.
type MessageSender interface {
	Send(ctx context.Context, msg model.OutboundMessage) (string, error)
}

// HTTPCaller performs the HTTP call of an api/webhook node with the
// request timeout as a hard deadline.
type HTTPCaller interface {
	Call(ctx context.Context, req model.HttpCallRequest) (*model.HttpCallResponse, error)
}

// ContactMutator applies a contact mutation (assignment, tag, custom
// field update).
type ContactMutator interface {
	Mutate(ctx context.Context, contactId string, op model.ContactOperation) error
}

// ResumeScheduler guarantees the run is resumed with a delay_elapsed
// event at or after resumeAt. The engine never owns a timer itself.
type ResumeScheduler interface {
	Schedule(runId string, resumeAt time.Time) error
}

// RecordingSender collects outbound messages instead of delivering
// them. Used for test/preview runs.
type RecordingSender struct {
	mu       sync.Mutex
	messages []model.OutboundMessage
}

func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

func (s *RecordingSender) Send(ctx context.Context, msg model.OutboundMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return uuid.New().String(), nil
}

func (s *RecordingSender) Messages() []model.OutboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboundMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// LoggingMutator records contact mutations in the log only. Used when
// no contact service is wired, and in test runs.
type LoggingMutator struct{}

func (LoggingMutator) Mutate(ctx context.Context, contactId string, op model.ContactOperation) error {
	logger.Info("contact mutation", zap.String("contactId", contactId), zap.String("kind", string(op.Kind)))
	return nil
}
