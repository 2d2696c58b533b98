// Package gate решает, можно ли запускать этап, и доводит вызов
// до финального состояния.
//
// Gate отвечает за:
//   - Проверку готовности предыдущего этапа (Evaluate)
//   - Поиск скрипта этапа в сессии
//   - Подготовку этапа (переопределение iterator для RUN/POST)
//   - Выполнение скрипта через runner
//   - Сохранение симуляции и публикацию этапа
//   - Маркеры FAILED и parameters_cleanup.txt
//
// Запись истории (Recorder), события (EventPublisher) и метрики
// необязательны: их ошибки учитываются как faults и не меняют состояние.
package gate
