package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/StageGate/internal/domain"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeStages — topic-обменник событий этапов.
const ExchangeStages Exchange = "stagegate.stages"

// QueueStageEvents — очередь для stagegate events.
const QueueStageEvents Queue = "stages.events"

// Шаблоны привязки.
const (
	BindingStages RoutingKey = "stage.*"
	BindingChains RoutingKey = "chain.*"
)

// StageRoutingKey — stage.<state>, например stage.succeeded.
func StageRoutingKey(state domain.GateState) RoutingKey {
	return RoutingKey("stage." + strings.ToLower(string(state)))
}

// ChainRoutingKey — chain.<status>, например chain.failed.
func ChainRoutingKey(status domain.ChainStatus) RoutingKey {
	return RoutingKey("chain." + strings.ToLower(string(status)))
}

// SetupTopology объявляет обменник, очередь и привязки.
// Операции идемпотентны, вызывается каждым процессом при старте.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeStages), // name
			"topic",                // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeStages, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueStageEvents), // name
			true,                     // durable
			false,                    // delete when unused
			false,                    // exclusive
			false,                    // no-wait
			nil,                      // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueStageEvents, err)
		}

		for _, key := range []RoutingKey{BindingStages, BindingChains} {
			err := ch.QueueBind(
				string(QueueStageEvents), // queue name
				string(key),              // routing key
				string(ExchangeStages),   // exchange
				false,                    // no-wait
				nil,                      // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s (%s): %w", QueueStageEvents, ExchangeStages, key, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  StageGate RabbitMQ Topology:

    stagegate.stages (topic)
    └── stages.events [routing: stage.*, chain.*]
            Publishers: stagegate gate, stagegate-monitor
            Consumer: stagegate events
  `
}
