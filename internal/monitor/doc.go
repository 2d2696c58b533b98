// Package monitor наблюдает за цепочками этапов со стороны.
//
// По cron-расписанию monitor проходит каждый workflow, определяет статус
// PRE, RUN и POST (MISSING, PENDING, SUCCEEDED, FAILED), выставляет
// gauge stagegate_chain_status и публикует chain.<status> при изменении.
//
// Monitor ничего не запускает и не трогает маркеры сессий.
package monitor
