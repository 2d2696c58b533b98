package jobstate

import "errors"

// Ошибки job-state клиента.
var (
	// ErrSubprocess — процесс сервиса не удалось запустить или дождаться.
	ErrSubprocess = errors.New("job-state subprocess failed")

	// ErrJobResolution — сервис не смог вернуть job id.
	ErrJobResolution = errors.New("job id not resolved")
)
