// Package mq публикует и потребляет события этапов через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с переподключением
//   - topology.go   — обменник, очередь, привязки
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление событий
//
// Типы сообщений:
//   - stage.finished — вызов gate достиг финального состояния (payload: domain.StageRun)
//   - chain.changed  — monitor заметил новый статус этапа (payload: ChainStatusPayload)
//
// Routing keys: stage.<state> (stage.succeeded, stage.failed, ...)
// и chain.<status> (chain.pending, chain.failed, ...).
package mq
