package runner

import "errors"

// Ошибки выполнения скрипта этапа.
var (
	// ErrScriptInterrupted — движок прервал скрипт исключением.
	ErrScriptInterrupted = errors.New("script interrupted by exception")

	// ErrSimulationLog — в логе солвера найден маркер ошибки.
	ErrSimulationLog = errors.New("error marker in simulation log")

	// ErrLogUnavailable — лог солвера отсутствует или не читается.
	ErrLogUnavailable = errors.New("simulation log unavailable")
)
