// Package runner выполняет скрипт этапа и классифицирует результат.
//
// Алгоритм:
//
//  1. Скрипт передаётся движку (Engine.Play), вызов блокирующий.
//  2. Прерывание исключением → FAILED, создаётся FAILED, job id не запрашивается.
//  3. Job id запрашивается у job-state сервиса (Register).
//     Ошибка → UNVERIFIED: лог не проверяется, FAILED не создаётся.
//  4. Лог <prefix>_<job_id>.log проверяется logscan.
//     Маркер ошибки → FAILED. Лог не читается → UNVERIFIED, иначе VERIFIED.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/jobstate"
	"github.com/shaiso/StageGate/internal/logscan"
	"github.com/shaiso/StageGate/internal/session"
	"github.com/shaiso/StageGate/internal/simulation"
	"github.com/shaiso/StageGate/internal/telemetry"
)

// JobResolver возвращает job id этапа.
type JobResolver interface {
	Register(ctx context.Context, workflow, stage string) (jobstate.Reply, error)
}

// Runner выполняет скрипты этапов.
type Runner struct {
	engine    simulation.Engine
	jobs      JobResolver
	logPrefix string
}

// Config — конфигурация Runner.
type Config struct {
	Engine simulation.Engine
	Jobs   JobResolver

	// LogPrefix — префикс лога солвера (default: logscan.DefaultPrefix).
	LogPrefix string
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	prefix := cfg.LogPrefix
	if prefix == "" {
		prefix = logscan.DefaultPrefix
	}

	return &Runner{
		engine:    cfg.Engine,
		jobs:      cfg.Jobs,
		logPrefix: prefix,
	}
}

// Result — результат выполнения скрипта.
type Result struct {
	// Script — путь к скрипту.
	Script string

	// Outcome — исход выполнения.
	Outcome domain.ScriptOutcome

	// JobID — job id, nil если не получен.
	JobID *int

	// LogPath — проверенный лог солвера.
	LogPath string

	// Finding — строка лога с маркером ошибки.
	Finding logscan.Finding

	// Duration — время выполнения скрипта движком.
	Duration time.Duration

	// Err — причина FAILED или UNVERIFIED.
	Err error
}

// Run выполняет скрипт этапа в сессии inv.
func (r *Runner) Run(ctx context.Context, inv domain.Invocation, script string) Result {
	logger := telemetry.FromContext(ctx).With("script", filepath.Base(script))
	res := Result{Script: script}

	// 1. Выполнение скрипта
	r.engine.Println("start play")
	started := time.Now()
	pb, err := r.engine.Play(ctx, script)
	res.Duration = time.Since(started)
	r.engine.Println("finish play")

	// 2. Прерывание исключением
	if err != nil || pb.Interrupted {
		r.engine.Println("got interrupted by exception")
		if err == nil {
			err = fmt.Errorf("exit code %d", pb.ExitCode)
		}
		logger.Error("stage script interrupted", "error", err, "duration", res.Duration)
		return r.fail(inv, res, fmt.Errorf("%w: %v", ErrScriptInterrupted, err))
	}

	// 3. Job id
	reply, err := r.jobs.Register(ctx, inv.WorkflowLocation, inv.StageName)
	r.engine.Println("output:" + reply.String())
	if err == nil {
		var id int
		id, err = reply.JobID()
		if err == nil {
			res.JobID = &id
		}
	}
	if err != nil {
		r.engine.Println(fmt.Sprintf("Cannot find the job_id for %s %s", inv.SessionLocation, inv.StageName))
		logger.Warn("job id not resolved, simulation log not checked", "reply", reply.String(), "error", err)
		res.Outcome = domain.OutcomeUnverified
		if !errors.Is(err, jobstate.ErrJobResolution) {
			err = errors.Join(jobstate.ErrJobResolution, err)
		}
		res.Err = err
		return res
	}

	// 4. Проверка лога солвера
	res.LogPath = logscan.LogPath(inv.SessionLocation, r.logPrefix, *res.JobID)
	finding, scanErr := logscan.Scan(res.LogPath)
	res.Finding = finding
	if finding.Marked {
		r.engine.Println("error: founded in " + res.LogPath)
		logger.Error("error marker found in simulation log",
			"job_id", *res.JobID,
			"path", res.LogPath,
			"line", finding.Line,
			"text", finding.Text,
		)
		return r.fail(inv, res, fmt.Errorf("%w: %s:%d: %s", ErrSimulationLog, res.LogPath, finding.Line, finding.Text))
	}

	if scanErr != nil {
		logger.Warn("cannot scan simulation log", "path", res.LogPath, "error", scanErr)
		res.Outcome = domain.OutcomeUnverified
		res.Err = fmt.Errorf("%w: %v", ErrLogUnavailable, scanErr)
		return res
	}

	logger.Info("stage script verified", "job_id", *res.JobID, "duration", res.Duration)
	res.Outcome = domain.OutcomeVerified
	return res
}

// fail создаёт FAILED и возвращает результат с исходом FAILED.
func (r *Runner) fail(inv domain.Invocation, res Result, cause error) Result {
	res.Outcome = domain.OutcomeFailed
	res.Err = cause

	if err := session.WriteFailed(inv.SessionLocation); err != nil {
		r.engine.Println("Cannot create FAILED file")
		res.Err = errors.Join(cause, err)
		return res
	}
	r.engine.Println("FAILED file created")
	return res
}
