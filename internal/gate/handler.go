package gate

import (
	"context"
	"fmt"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/params"
	"github.com/shaiso/StageGate/internal/session"
	"github.com/shaiso/StageGate/internal/simulation"
)

// iteratorKey — параметр, переопределяющий число шагов солвера.
const iteratorKey = "iterator"

// Handler — подготовка сессии перед выполнением скрипта этапа.
//
// Ошибка из Prepare финальная: этап переходит в FAILED.
// Нефатальные проблемы возвращаются в Preparation.Faults.
type Handler interface {
	Prepare(ctx context.Context, inv domain.Invocation, engine simulation.Engine) (Preparation, error)
}

// Preparation — результат подготовки.
type Preparation struct {
	// Params — прочитанные параметры сессии (может быть неполным).
	Params params.Map

	// MaxSteps — переопределённое число шагов, 0 если не задано.
	MaxSteps int

	// Faults — нефатальные ошибки подготовки.
	Faults []error
}

// Registry — реестр обработчиков по этапу скрипта.
type Registry struct {
	handlers map[domain.Stage]Handler
}

// NewRegistry создаёт реестр с обработчиками по умолчанию.
//
// pre_* выполняется как есть, run_* и post_* читают parameters.txt.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[domain.Stage]Handler)}
	r.Register(domain.StagePre, PreHandler{})
	r.Register(domain.StageRun, ParamsHandler{})
	r.Register(domain.StagePost, ParamsHandler{})
	return r
}

// Register добавляет обработчик для этапа.
func (r *Registry) Register(stage domain.Stage, h Handler) {
	r.handlers[stage] = h
}

// Get возвращает обработчик для этапа.
func (r *Registry) Get(stage domain.Stage) (Handler, error) {
	h, ok := r.handlers[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, stage)
	}
	return h, nil
}

// PreHandler — этап PRE не требует подготовки.
type PreHandler struct{}

// Prepare ничего не делает.
func (PreHandler) Prepare(context.Context, domain.Invocation, simulation.Engine) (Preparation, error) {
	return Preparation{}, nil
}

// ParamsHandler читает parameters.txt и применяет iterator.
type ParamsHandler struct{}

// Prepare читает параметры сессии.
//
// Ошибка чтения файла — fault, подготовка продолжается с тем, что прочитано.
// Нечисловой iterator — ErrConfigParse.
func (ParamsHandler) Prepare(_ context.Context, inv domain.Invocation, engine simulation.Engine) (Preparation, error) {
	var prep Preparation

	m, err := params.Read(session.ParamsPath(inv.SessionLocation))
	if err != nil {
		prep.Faults = append(prep.Faults, err)
	}
	prep.Params = m

	n, ok, err := m.Int(iteratorKey)
	if err != nil {
		engine.Println("Cannot parse iterator: " + m[iteratorKey])
		return prep, err
	}
	if !ok {
		return prep, nil
	}

	if err := engine.SetMaxSteps(n); err != nil {
		return prep, fmt.Errorf("%w: %s=%d: %v", params.ErrConfigParse, iteratorKey, n, err)
	}
	prep.MaxSteps = n
	engine.Println(fmt.Sprintf("max steps set to %d", n))

	return prep, nil
}
