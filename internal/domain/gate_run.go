package domain

import (
	"time"

	"github.com/google/uuid"
)

// GateRun — запись истории одного вызова gate.
//
// Создаётся gate после перехода в финальное состояние и сохраняется
// в БД (repo.GateRunRepo), если история включена.
type GateRun struct {
	// ID — совпадает с Invocation.ID.
	ID uuid.UUID `json:"id"`

	// WorkflowLocation — директория цепочки этапов.
	WorkflowLocation string `json:"workflow_location"`

	// SessionLocation — директория сессии.
	SessionLocation string `json:"session_location"`

	// Stage — имя директории этапа (PRE/RUN/POST или произвольное).
	Stage string `json:"stage"`

	// Script — имя выполненного скрипта, пусто если скрипт не запускался.
	Script string `json:"script,omitempty"`

	// JobID — job id, полученный от job-state сервиса.
	// Nil, если id не удалось получить или скрипт не запускался.
	JobID *int `json:"job_id,omitempty"`

	// State — финальное состояние gate.
	State GateState `json:"state"`

	// Outcome — исход выполнения скрипта, пусто если скрипт не запускался.
	Outcome ScriptOutcome `json:"outcome,omitempty"`

	// Published — этап связан с цепочкой job-state сервисом.
	Published bool `json:"published"`

	// Error — текст ошибки для FAILED/UNRUNNABLE.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала вызова.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время перехода в финальное состояние.
	FinishedAt time.Time `json:"finished_at"`
}

// Duration возвращает продолжительность вызова.
func (r *GateRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewGateRun создаёт запись истории для вызова.
func NewGateRun(inv Invocation, startedAt time.Time) *GateRun {
	return &GateRun{
		ID:               inv.ID,
		WorkflowLocation: inv.WorkflowLocation,
		SessionLocation:  inv.SessionLocation,
		Stage:            inv.StageName,
		StartedAt:        startedAt,
	}
}

// Finish фиксирует финальное состояние.
func (r *GateRun) Finish(state GateState, err error) {
	r.State = state
	r.FinishedAt = time.Now()
	if err != nil {
		r.Error = err.Error()
	}
}
