package simulation

import "errors"

// Ошибки движка.
var (
	// ErrNoBinary — не указан исполняемый файл солвера.
	ErrNoBinary = errors.New("solver binary not configured")

	// ErrInvalidMaxSteps — лимит шагов должен быть положительным.
	ErrInvalidMaxSteps = errors.New("invalid maximum steps")

	// ErrSaveFailed — скрипт сохранения завершился с ошибкой.
	ErrSaveFailed = errors.New("save state failed")
)
