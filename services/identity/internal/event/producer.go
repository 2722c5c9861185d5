package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/siapee/siapee/pkg/kafka"
	"github.com/siapee/siapee/services/identity/internal/domain"
)

// Event types published by the identity service.
const (
	TypePasswordResetRequested = "identity.password_reset.requested"
	TypeSignupSubmitted        = "identity.signup.submitted"
	TypeSignupDecided          = "identity.signup.decided"
)

// Kafka topics for identity domain events.
var (
	TopicPasswordResetRequested = pkgkafka.Topic("identity", "password_reset.requested")
	TopicSignupSubmitted        = pkgkafka.Topic("identity", "signup.submitted")
	TopicSignupDecided          = pkgkafka.Topic("identity", "signup.decided")
)

// Aggregate types.
const (
	AggregateTypeUser   = "user"
	AggregateTypeSignup = "signup_request"
)

// SourceIdentityService identifies events originating from this service.
const SourceIdentityService = "identity-service"

// PasswordResetRequestedData is consumed by the notification service, which
// mails the reset link. It is the only place the raw reset token leaves the
// service.
type PasswordResetRequestedData struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignupSubmittedData is the payload for a signup.submitted event.
type SignupSubmittedData struct {
	RequestID     string `json:"requestId"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	RoleRequested string `json:"roleRequested"`
}

// SignupDecidedData is the payload for a signup.decided event.
type SignupDecidedData struct {
	RequestID   string `json:"requestId"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	DecidedByID string `json:"decidedById"`
	UserCreated bool   `json:"userCreated"`
}

// Publisher is what the services need from the event layer.
type Publisher interface {
	PublishPasswordResetRequested(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error
	PublishSignupSubmitted(ctx context.Context, req *domain.SignupRequest) error
	PublishSignupDecided(ctx context.Context, req *domain.SignupRequest, userCreated bool) error
}

// Producer publishes identity domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the identity service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishPasswordResetRequested publishes a password_reset.requested event.
func (p *Producer) PublishPasswordResetRequested(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error {
	data := PasswordResetRequestedData{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	return p.publish(ctx, TopicPasswordResetRequested, TypePasswordResetRequested, user.ID, AggregateTypeUser, data)
}

// PublishSignupSubmitted publishes a signup.submitted event.
func (p *Producer) PublishSignupSubmitted(ctx context.Context, req *domain.SignupRequest) error {
	data := SignupSubmittedData{
		RequestID:     req.ID,
		Name:          req.Name,
		Email:         req.Email,
		RoleRequested: req.RoleRequested,
	}
	return p.publish(ctx, TopicSignupSubmitted, TypeSignupSubmitted, req.ID, AggregateTypeSignup, data)
}

// PublishSignupDecided publishes a signup.decided event.
func (p *Producer) PublishSignupDecided(ctx context.Context, req *domain.SignupRequest, userCreated bool) error {
	data := SignupDecidedData{
		RequestID:   req.ID,
		Email:       req.Email,
		Status:      req.Status,
		Reason:      req.Reason,
		DecidedByID: req.DecidedByID,
		UserCreated: userCreated,
	}
	return p.publish(ctx, TopicSignupDecided, TypeSignupDecided, req.ID, AggregateTypeSignup, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(ctx, eventType, aggregateID, aggregateType, SourceIdentityService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
