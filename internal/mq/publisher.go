package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/StageGate/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeStageFinished MessageType = "stage.finished"
	MessageTypeChainChanged  MessageType = "chain.changed"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// ChainStatusPayload — изменение статуса этапа, замеченное monitor.
type ChainStatusPayload struct {
	Workflow string             `json:"workflow"`
	Stage    domain.Stage       `json:"stage"`
	Status   domain.ChainStatus `json:"status"`
	Previous domain.ChainStatus `json:"previous,omitempty"`
}

// Publisher публикует события этапов в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в ExchangeStages с routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeStages), // exchange
			string(routingKey),     // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Type:         string(msg.Type),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeStages, routingKey, err)
		}

		p.logger.Debug("published message",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishStageEvent публикует финальное состояние вызова gate.
func (p *Publisher) PublishStageEvent(ctx context.Context, run *domain.GateRun) error {
	return p.Publish(ctx, StageRoutingKey(run.State), NewMessage(MessageTypeStageFinished, run))
}

// PublishChainStatus публикует изменение статуса этапа в цепочке.
func (p *Publisher) PublishChainStatus(ctx context.Context, payload ChainStatusPayload) error {
	return p.Publish(ctx, ChainRoutingKey(payload.Status), NewMessage(MessageTypeChainChanged, payload))
}
