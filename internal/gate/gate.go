package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/jobstate"
	"github.com/shaiso/StageGate/internal/params"
	"github.com/shaiso/StageGate/internal/runner"
	"github.com/shaiso/StageGate/internal/session"
	"github.com/shaiso/StageGate/internal/simulation"
	"github.com/shaiso/StageGate/internal/telemetry"
)

// JobState — job-state сервис с точки зрения gate.
type JobState interface {
	Query(ctx context.Context, workflow, stage string) (jobstate.Reply, error)
	Publish(ctx context.Context, target string) (jobstate.Reply, error)
	Register(ctx context.Context, workflow, stage string) (jobstate.Reply, error)
}

// Recorder сохраняет историю вызовов (repo.GateRunRepo).
type Recorder interface {
	Create(ctx context.Context, run *domain.GateRun) error
}

// EventPublisher публикует финальное состояние вызова (mq.Publisher).
type EventPublisher interface {
	PublishStageEvent(ctx context.Context, run *domain.GateRun) error
}

// Gate — привратник этапа для одной сессии.
type Gate struct {
	engine   simulation.Engine
	jobs     JobState
	runner   *runner.Runner
	handlers *Registry

	recorder Recorder
	events   EventPublisher
	metrics  *telemetry.Metrics

	logger *slog.Logger
}

// Config — конфигурация Gate.
type Config struct {
	Engine   simulation.Engine
	JobState JobState

	// LogPrefix — префикс лога солвера (default: logscan.DefaultPrefix).
	LogPrefix string

	// Handlers — обработчики этапов (default: NewRegistry()).
	Handlers *Registry

	// Необязательные
	Recorder Recorder
	Events   EventPublisher
	Metrics  *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Gate.
func New(cfg Config) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handlers := cfg.Handlers
	if handlers == nil {
		handlers = NewRegistry()
	}

	return &Gate{
		engine:   cfg.Engine,
		jobs:     cfg.JobState,
		handlers: handlers,
		runner: runner.New(runner.Config{
			Engine:    cfg.Engine,
			Jobs:      cfg.JobState,
			LogPrefix: cfg.LogPrefix,
		}),
		recorder: cfg.Recorder,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "gate"),
	}
}

// Result — итог одного вызова gate.
type Result struct {
	Invocation domain.Invocation

	// State — финальное состояние.
	State domain.GateState

	// History — пройденные состояния по порядку.
	History []domain.GateState

	// Script — выполненный скрипт, nil если скрипт не запускался.
	Script *runner.Result

	// Published — этап опубликован в job-state сервисе.
	Published bool

	// Err — причина FAILED или UNRUNNABLE.
	Err error

	// Faults — все ошибки вызова, включая нефатальные.
	Faults []error

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration возвращает продолжительность вызова.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// GateRun возвращает запись истории для вызова.
func (r *Result) GateRun() *domain.GateRun {
	run := domain.NewGateRun(r.Invocation, r.StartedAt)
	run.State = r.State
	run.Published = r.Published
	run.FinishedAt = r.FinishedAt
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	if r.Script != nil {
		run.Script = filepath.Base(r.Script.Script)
		run.JobID = r.Script.JobID
		run.Outcome = r.Script.Outcome
	}
	return run
}

// advance переводит вызов в состояние to.
func (r *Result) advance(to domain.GateState) error {
	if err := domain.ValidateTransition(r.State, to); err != nil {
		return err
	}
	r.State = to
	r.History = append(r.History, to)
	return nil
}

// Run выполняет вызов для сессии движка.
//
// Возвращает ошибку, если этап завершился в FAILED или UNRUNNABLE.
// Result при этом не nil.
func (g *Gate) Run(ctx context.Context) (*Result, error) {
	inv, err := session.Resolve(g.engine.SessionDir(), g.engine.PresentationName())
	if err != nil {
		return nil, fmt.Errorf("resolve invocation: %w", err)
	}
	return g.RunInvocation(ctx, inv)
}

// RunInvocation выполняет вызов для уже построенного Invocation.
func (g *Gate) RunInvocation(ctx context.Context, inv domain.Invocation) (*Result, error) {
	logger := telemetry.WithWorkflow(
		telemetry.WithStage(telemetry.WithInvocationID(g.logger, inv.ID.String()), inv.StageName),
		inv.WorkflowLocation,
	)
	ctx = telemetry.WithLogger(ctx, logger)

	res := &Result{Invocation: inv, StartedAt: time.Now()}

	logger.Info("gate started", "session", inv.SessionLocation, "chained", inv.Chained)

	cause := g.gate(ctx, res)

	g.finish(ctx, res, cause)
	return res, cause
}

// gate проходит машину состояний до финального состояния.
// Возвращает причину FAILED/UNRUNNABLE.
func (g *Gate) gate(ctx context.Context, res *Result) error {
	inv := res.Invocation

	// 1. Готовность предыдущего этапа
	state, err := g.Evaluate(ctx, inv)
	if err != nil {
		g.fault(ctx, res, err)
	}
	if err := res.advance(state); err != nil {
		return err
	}

	if state == domain.GateStateUnrunnable {
		g.engine.Println("The simulation is not runnable: previous stage is not completed")
		cause := fmt.Errorf("%w: %s", ErrDependencyUnmet, inv.SessionLocation)
		if err := session.WriteFailed(inv.SessionLocation); err != nil {
			return errors.Join(cause, err)
		}
		return cause
	}

	// 2. Поиск скрипта
	script, found, err := session.DiscoverScript(inv.SessionLocation)
	if err != nil {
		return g.fail(res, err)
	}
	if !found {
		g.engine.Println("No stage script found in " + inv.SessionLocation)
		return res.advance(domain.GateStateIdle)
	}

	// 3. Подготовка
	stage, _ := domain.StageFromPrefix(filepath.Base(script))
	handler, err := g.handlers.Get(stage)
	if err != nil {
		return g.fail(res, err)
	}
	prep, err := handler.Prepare(ctx, inv, g.engine)
	for _, f := range prep.Faults {
		g.fault(ctx, res, f)
	}
	if err != nil {
		return g.fail(res, err)
	}

	// 4. Выполнение
	if err := res.advance(domain.GateStateExecuting); err != nil {
		return err
	}
	g.clearStaleFailed(ctx, inv)

	scriptRes := g.runner.Run(ctx, inv, script)
	res.Script = &scriptRes

	switch scriptRes.Outcome {
	case domain.OutcomeFailed:
		// FAILED уже создан runner
		if err := res.advance(domain.GateStateFailed); err != nil {
			return err
		}
		return scriptRes.Err
	case domain.OutcomeUnverified:
		g.fault(ctx, res, scriptRes.Err)
	}

	// 5. Завершение
	return g.complete(ctx, res)
}

// Evaluate определяет, можно ли запускать этап.
//
// Несвязанная сессия и PRE запускаются всегда. Иначе предыдущий этап
// должен быть подтверждён job-state сервисом (ответ содержит OK).
// Ошибка — fault вызова сервиса, состояние при этом UNRUNNABLE.
func (g *Gate) Evaluate(ctx context.Context, inv domain.Invocation) (domain.GateState, error) {
	logger := telemetry.FromContext(ctx)

	if !inv.Chained {
		logger.Debug("session is not chained, runnable")
		return domain.GateStateRunnable, nil
	}
	if inv.Stage == domain.StagePre {
		return domain.GateStateRunnable, nil
	}

	prev, ok := inv.Stage.Previous()
	if !ok {
		logger.Warn("chained session in unknown stage directory", "stage", inv.StageName)
		return domain.GateStateUnrunnable, nil
	}

	reply, err := g.jobs.Query(ctx, inv.WorkflowLocation, prev.String())
	g.engine.Println("output:" + reply.String())
	if err != nil {
		return domain.GateStateUnrunnable, err
	}
	if !reply.OK() {
		logger.Info("previous stage not completed", "previous", prev, "reply", reply.String())
		return domain.GateStateUnrunnable, nil
	}

	return domain.GateStateRunnable, nil
}

// complete сохраняет симуляцию и публикует этап.
func (g *Gate) complete(ctx context.Context, res *Result) error {
	inv := res.Invocation
	logger := telemetry.FromContext(ctx)

	if err := g.engine.SaveState(ctx, inv.SimFile); err != nil {
		return g.fail(res, fmt.Errorf("%w: %v", ErrSaveState, err))
	}

	if session.HasCleanupMarker(inv.SessionLocation) {
		logger.Info("cleanup session, publish skipped")
		return res.advance(domain.GateStateSucceeded)
	}

	reply, err := g.jobs.Publish(ctx, inv.PublishTarget())
	g.engine.Println("output:" + reply.String())
	switch {
	case err != nil:
		g.fault(ctx, res, err)
	case reply.IsError():
		return g.fail(res, fmt.Errorf("%w: %s", ErrPublish, reply))
	case reply.IsInfo():
		// Сервису нечего связывать
		logger.Info("publish acknowledged with info, nothing linked", "reply", reply.String())
	default:
		res.Published = true
		logger.Info("stage published", "target", inv.PublishTarget(), "reply", reply.String())
	}

	return res.advance(domain.GateStateSucceeded)
}

// fail создаёт FAILED и переводит вызов в FAILED.
func (g *Gate) fail(res *Result, cause error) error {
	if err := session.WriteFailed(res.Invocation.SessionLocation); err != nil {
		cause = errors.Join(cause, err)
	} else {
		g.engine.Println("FAILED file created")
	}
	if err := res.advance(domain.GateStateFailed); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// clearStaleFailed удаляет FAILED предыдущей попытки.
func (g *Gate) clearStaleFailed(ctx context.Context, inv domain.Invocation) {
	removed, err := session.ClearFailed(inv.SessionLocation)
	if err != nil {
		telemetry.FromContext(ctx).Warn("cannot remove stale FAILED", "error", err)
		return
	}
	if removed {
		telemetry.FromContext(ctx).Info("stale FAILED removed")
	}
}

// finish выполняет общие действия финального состояния:
// cleanup-маркер, история, события, метрики.
func (g *Gate) finish(ctx context.Context, res *Result, cause error) {
	logger := telemetry.FromContext(ctx)
	inv := res.Invocation

	res.Err = cause
	if cause != nil {
		g.fault(ctx, res, cause)
	}

	// Маркер удаляется в любом финальном состоянии, кроме IDLE
	if res.State != domain.GateStateIdle {
		removed, err := session.RemoveCleanupMarker(inv.SessionLocation)
		if err != nil {
			logger.Warn("cannot remove cleanup marker", "error", err)
		} else if removed {
			logger.Info("cleanup marker removed")
		}
	}

	res.FinishedAt = time.Now()
	run := res.GateRun()

	if g.recorder != nil {
		if err := g.recorder.Create(ctx, run); err != nil {
			g.fault(ctx, res, fmt.Errorf("%w: %v", ErrRecord, err))
		}
	}
	if g.events != nil {
		if err := g.events.PublishStageEvent(ctx, run); err != nil {
			g.fault(ctx, res, fmt.Errorf("%w: %v", ErrEvent, err))
		}
	}

	g.metrics.StageResult(inv.StageName, string(res.State))
	if res.Script != nil {
		g.metrics.ScriptDuration(inv.StageName, res.Script.Duration)
	}

	attrs := []any{
		"state", res.State,
		"duration", res.Duration(),
		"faults", len(res.Faults),
	}
	if res.Script != nil {
		attrs = append(attrs, "outcome", res.Script.Outcome)
	}
	if res.State.IsFailure() {
		logger.Error("gate finished", append(attrs, "error", cause)...)
		return
	}
	logger.Info("gate finished", attrs...)
}

// fault учитывает ошибку вызова: лог, метрика, Result.Faults.
func (g *Gate) fault(ctx context.Context, res *Result, err error) {
	if err == nil {
		return
	}
	kind := FaultKind(err)
	res.Faults = append(res.Faults, err)
	g.metrics.Fault(kind)
	telemetry.FromContext(ctx).Warn("fault", "kind", kind, "error", err)
}

// FaultKind возвращает метку метрики stagegate_faults_total для ошибки.
func FaultKind(err error) string {
	switch {
	case errors.Is(err, jobstate.ErrSubprocess):
		return "subprocess"
	case errors.Is(err, jobstate.ErrJobResolution):
		return "job_resolution"
	case errors.Is(err, params.ErrConfigParse):
		return "config_parse"
	case errors.Is(err, params.ErrRead):
		return "params_read"
	case errors.Is(err, ErrDependencyUnmet):
		return "dependency_unmet"
	case errors.Is(err, runner.ErrScriptInterrupted):
		return "script_interrupted"
	case errors.Is(err, runner.ErrSimulationLog):
		return "simulation_log"
	case errors.Is(err, runner.ErrLogUnavailable):
		return "log_unavailable"
	case errors.Is(err, ErrPublish):
		return "publish"
	case errors.Is(err, ErrSaveState):
		return "save_state"
	case errors.Is(err, ErrRecord):
		return "history"
	case errors.Is(err, ErrEvent):
		return "events"
	default:
		return "other"
	}
}
