package domain

import "fmt"

// GateState — состояние gate для одного вызова.
//
// Жизненный цикл:
//
//	RUNNABLE → EXECUTING → SUCCEEDED
//	         ↘ IDLE      ↘ FAILED
//	         ↘ FAILED
//	(или) UNRUNNABLE
//
// Начальное состояние (RUNNABLE или UNRUNNABLE) определяется при вызове.
type GateState string

const (
	// GateStateUnrunnable — предыдущий этап не завершён успешно.
	GateStateUnrunnable GateState = "UNRUNNABLE"

	// GateStateRunnable — этап может быть запущен.
	GateStateRunnable GateState = "RUNNABLE"

	// GateStateIdle — в сессии нет скрипта этапа, делать нечего.
	GateStateIdle GateState = "IDLE"

	// GateStateExecuting — скрипт этапа выполняется движком.
	GateStateExecuting GateState = "EXECUTING"

	// GateStateSucceeded — этап завершён и опубликован.
	GateStateSucceeded GateState = "SUCCEEDED"

	// GateStateFailed — этап упал, в сессии создан FAILED.
	GateStateFailed GateState = "FAILED"
)

// gateTransitions — разрешённые переходы (from → to).
// Пустой from соответствует началу вызова.
var gateTransitions = map[GateState]map[GateState]struct{}{
	"": {
		GateStateRunnable:   {},
		GateStateUnrunnable: {},
	},
	GateStateRunnable: {
		GateStateExecuting: {},
		GateStateIdle:      {},
		GateStateFailed:    {},
	},
	GateStateExecuting: {
		GateStateSucceeded: {},
		GateStateFailed:    {},
	},
	GateStateUnrunnable: {},
	GateStateIdle:       {},
	GateStateSucceeded:  {},
	GateStateFailed:     {},
}

// CanTransition проверяет, разрешён ли переход from → to.
func CanTransition(from, to GateState) bool {
	next, ok := gateTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// ValidateTransition возвращает ErrInvalidTransition для запрещённого перехода.
func ValidateTransition(from, to GateState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal возвращает true, если состояние финальное.
func (s GateState) IsTerminal() bool {
	switch s {
	case GateStateUnrunnable, GateStateIdle, GateStateSucceeded, GateStateFailed:
		return true
	default:
		return false
	}
}

// IsFailure возвращает true для состояний, которые должны завершать процесс с ошибкой.
func (s GateState) IsFailure() bool {
	return s == GateStateFailed || s == GateStateUnrunnable
}

// ScriptOutcome — результат выполнения скрипта этапа.
type ScriptOutcome string

const (
	// OutcomeVerified — скрипт выполнен, лог солвера проверен, ошибок нет.
	OutcomeVerified ScriptOutcome = "VERIFIED"

	// OutcomeUnverified — скрипт выполнен, но job id не получен,
	// поэтому лог не проверялся. Снаружи выглядит как успех.
	OutcomeUnverified ScriptOutcome = "UNVERIFIED"

	// OutcomeFailed — скрипт прерван исключением или в логе найдена ошибка.
	OutcomeFailed ScriptOutcome = "FAILED"
)

// IsSuccess возвращает true для исходов, после которых этап публикуется.
func (o ScriptOutcome) IsSuccess() bool {
	return o == OutcomeVerified || o == OutcomeUnverified
}

// ChainStatus — статус директории этапа, наблюдаемый снаружи (monitor).
type ChainStatus string

const (
	// ChainStatusMissing — директории этапа нет.
	ChainStatusMissing ChainStatus = "MISSING"

	// ChainStatusPending — этап ещё не завершён.
	ChainStatusPending ChainStatus = "PENDING"

	// ChainStatusSucceeded — job-state сервис подтверждает завершение этапа.
	ChainStatusSucceeded ChainStatus = "SUCCEEDED"

	// ChainStatusFailed — в директории этапа есть FAILED.
	ChainStatusFailed ChainStatus = "FAILED"
)

// Value возвращает числовое значение статуса для метрик.
func (s ChainStatus) Value() float64 {
	switch s {
	case ChainStatusPending:
		return 1
	case ChainStatusSucceeded:
		return 2
	case ChainStatusFailed:
		return 3
	default:
		return 0
	}
}
