package domain

import (
	"path/filepath"

	"github.com/google/uuid"
)

// Invocation — неизменяемый контекст одного вызова gate.
//
// Создаётся один раз на входе (session.Resolve) и передаётся по значению
// во все компоненты: gate, runner, recorder.
type Invocation struct {
	// ID — идентификатор вызова для корреляции логов, событий и истории.
	ID uuid.UUID `json:"id"`

	// Stage — этап, определённый по имени директории сессии.
	// Пустой, если имя директории не является этапом.
	Stage Stage `json:"stage,omitempty"`

	// StageName — исходное имя директории сессии.
	StageName string `json:"stage_name"`

	// WorkflowLocation — родительская директория цепочки этапов.
	WorkflowLocation string `json:"workflow_location"`

	// SessionLocation — рабочая директория сессии.
	SessionLocation string `json:"session_location"`

	// SimFile — путь к файлу симуляции в сессии.
	SimFile string `json:"sim_file"`

	// Chained — файл симуляции является symlink на предыдущий этап.
	Chained bool `json:"chained"`
}

// PublishTarget возвращает путь, который публикуется как голова цепочки.
func (i Invocation) PublishTarget() string {
	return filepath.Join(i.WorkflowLocation, i.StageName)
}
