// Package cli реализует команды stagegate.
//
// # Обзор
//
// CLI запускает gate для сессии этапа, проверяет готовность, разбирает
// parameters.txt и логи солвера, показывает статус цепочек, историю
// вызовов и поток событий.
//
// # Ключевые компоненты
//
// ## Env
//
// Конфигурация (internal/config) и логгер. Создаётся лениво через
// EnvFunc после разбора PersistentFlags (--config). История (PostgreSQL)
// и события (RabbitMQ) подключаются только если заданы DB_URL и RABBITMQ_URL.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения — в stderr. В JSON режиме консоль
// движка тоже уходит в stderr: stagegate gate --json | jq .state
//
// ## Commands
//
//   - gate, check          — сессия этапа (--session, --name)
//   - params, scan         — локальные файлы, конфигурация не нужна
//   - status, history      — workflow
//   - events               — поток событий из RabbitMQ
//
// Каждая команда создаётся фабричной функцией (NewGateCmd и т.д.),
// принимающей envFn и outputFn. Ошибка команды даёт код выхода 1.
package cli
