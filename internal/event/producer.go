package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/griebenowschalk/manga-tracker/internal/domain"
	pkgkafka "github.com/griebenowschalk/manga-tracker/pkg/kafka"
	"github.com/griebenowschalk/manga-tracker/pkg/logger"
)

// Kafka topic constants for account domain events.
const (
	TopicUserRegistered   = "mangatracker.user.registered"
	TopicUserUpdated      = "mangatracker.user.updated"
	TopicUserDeleted      = "mangatracker.user.deleted"
	TopicPasswordChanged  = "mangatracker.user.password_changed"
	TopicPasswordResetReq = "mangatracker.user.password_reset_requested"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceAccounts = "manga-tracker"

// UserEventData is the payload for user lifecycle events.
type UserEventData struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// PasswordChangedData is the payload for a user.password_changed event.
type PasswordChangedData struct {
	UserID string `json:"user_id"`
}

// PasswordResetRequestedData is the payload for a
// user.password_reset_requested event.
type PasswordResetRequestedData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Producer publishes account domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the accounts service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publishUserEvent(ctx, TopicUserRegistered, user)
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	return p.publishUserEvent(ctx, TopicUserUpdated, user)
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, user *domain.User) error {
	return p.publishUserEvent(ctx, TopicUserDeleted, user)
}

// PublishPasswordChanged publishes a user.password_changed event. The payload
// carries only the user id; downstream consumers must never see credentials.
func (p *Producer) PublishPasswordChanged(ctx context.Context, userID string) error {
	data := PasswordChangedData{UserID: userID}

	event, err := pkgkafka.NewEvent(TopicPasswordChanged, userID, AggregateTypeUser, SourceAccounts, data)
	if err != nil {
		return fmt.Errorf("create user.password_changed event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicPasswordChanged, event); err != nil {
		return fmt.Errorf("publish user.password_changed event: %w", err)
	}

	return nil
}

// PublishPasswordResetRequested publishes a user.password_reset_requested event.
func (p *Producer) PublishPasswordResetRequested(ctx context.Context, userID, email string) error {
	data := PasswordResetRequestedData{UserID: userID, Email: email}

	event, err := pkgkafka.NewEvent(TopicPasswordResetReq, userID, AggregateTypeUser, SourceAccounts, data)
	if err != nil {
		return fmt.Errorf("create user.password_reset_requested event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicPasswordResetReq, event); err != nil {
		return fmt.Errorf("publish user.password_reset_requested event: %w", err)
	}

	return nil
}

func (p *Producer) publishUserEvent(ctx context.Context, topic string, user *domain.User) error {
	data := UserEventData{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}

	event, err := pkgkafka.NewEvent(topic, user.ID, AggregateTypeUser, SourceAccounts, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published user event",
		slog.String("topic", topic),
		slog.String("user_id", user.ID),
	)

	return nil
}
