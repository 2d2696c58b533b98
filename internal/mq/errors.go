package mq

import "errors"

// Ошибки RabbitMQ.
var (
	// ErrNoURL — адрес RabbitMQ не задан.
	ErrNoURL = errors.New("rabbitmq url not configured")

	// ErrNoChannel — канал не открыт (соединение переподключается).
	ErrNoChannel = errors.New("no channel available")
)
