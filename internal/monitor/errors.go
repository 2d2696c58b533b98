package monitor

import "errors"

// Ошибки monitor.
var (
	// ErrInvalidSchedule — некорректное cron-выражение.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrNoWorkflows — не задано ни одного workflow для наблюдения.
	ErrNoWorkflows = errors.New("no workflows to monitor")
)
