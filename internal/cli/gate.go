package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/gate"
	"github.com/shaiso/StageGate/internal/mq"
	"github.com/shaiso/StageGate/internal/session"
	"github.com/shaiso/StageGate/internal/simulation"
	"github.com/shaiso/StageGate/internal/telemetry"
)

// Ошибки команд для кода выхода.
var (
	// ErrStageFailed — этап завершился в FAILED или UNRUNNABLE.
	ErrStageFailed = errors.New("stage failed")

	// ErrNotRunnable — этап не может быть запущен.
	ErrNotRunnable = errors.New("stage not runnable")
)

// sessionFlags — общие флаги выбора сессии.
type sessionFlags struct {
	dir  string
	name string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "session", ".", "Session directory")
	cmd.Flags().StringVar(&f.name, "name", "", "Simulation name (first *.sim in session if not specified)")
}

// resolve возвращает директорию и имя симуляции.
func (f *sessionFlags) resolve() (string, string, error) {
	if f.name != "" {
		return f.dir, f.name, nil
	}
	name, err := session.FindSimName(f.dir)
	if err != nil {
		return "", "", err
	}
	return f.dir, name, nil
}

// NewGateCmd создаёт команду запуска gate для сессии.
func NewGateCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Check the previous stage, run the stage script and publish the stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFn()
			if err != nil {
				return err
			}
			out := outputFn()
			ctx := cmd.Context()
			cfg := env.Config

			dir, name, err := flags.resolve()
			if err != nil {
				return err
			}

			engine, err := newEngine(env, out, dir, name)
			if err != nil {
				return err
			}

			metrics := telemetry.NewMetrics()
			gcfg := gate.Config{
				Engine:    engine,
				JobState:  env.JobState(),
				LogPrefix: cfg.Engine.LogPrefix,
				Metrics:   metrics,
				Logger:    env.Logger,
			}

			// История и события необязательны: недоступность не мешает gate
			history, closeHistory, err := env.OpenHistory(ctx)
			if err != nil {
				env.Logger.Warn("history not available, stage run will not be recorded", "error", err)
			} else if history != nil {
				gcfg.Recorder = history
			}
			defer closeHistory()

			conn, closeEvents, err := env.OpenEvents(ctx)
			if err != nil {
				env.Logger.Warn("RabbitMQ not available, stage event will not be published", "error", err)
			} else if conn != nil {
				gcfg.Events = mq.NewPublisher(conn, env.Logger)
			}
			defer closeEvents()

			res, runErr := gate.New(gcfg).Run(ctx)
			if res == nil {
				return runErr
			}

			if path := cfg.Metrics.Textfile; path != "" {
				if err := metrics.WriteTextfile(path); err != nil {
					env.Logger.Warn("failed to write metrics textfile", "path", path, "error", err)
				}
			}

			out.Print(gateHeaders, [][]string{gateRow(res)}, res.GateRun())

			if res.State.IsFailure() {
				return fmt.Errorf("%w: %s: %v", ErrStageFailed, res.State, runErr)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// NewCheckCmd создаёт команду проверки готовности этапа без запуска.
func NewCheckCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether the stage can run (exit 1 if not)",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFn()
			if err != nil {
				return err
			}
			out := outputFn()

			dir, name, err := flags.resolve()
			if err != nil {
				return err
			}
			inv, err := session.Resolve(dir, name)
			if err != nil {
				return err
			}

			engine, err := newEngine(env, out, dir, name)
			if err != nil {
				return err
			}

			g := gate.New(gate.Config{
				Engine:   engine,
				JobState: env.JobState(),
				Logger:   env.Logger,
			})
			state, evalErr := g.Evaluate(cmd.Context(), inv)

			result := checkResult{
				Session: inv.SessionLocation,
				Stage:   inv.StageName,
				Chained: inv.Chained,
				State:   state,
			}
			if evalErr != nil {
				result.Error = evalErr.Error()
			}

			out.Print(
				[]string{"SESSION", "STAGE", "CHAINED", "STATE"},
				[][]string{{result.Session, result.Stage, strconv.FormatBool(result.Chained), string(state)}},
				result,
			)

			if state != domain.GateStateRunnable {
				return ErrNotRunnable
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// newEngine создаёт движок для сессии по конфигурации.
func newEngine(env *Env, out *Output, dir, name string) (*simulation.Batch, error) {
	cfg := env.Config.Engine
	return simulation.NewBatch(simulation.BatchConfig{
		Binary:     cfg.Binary,
		Args:       cfg.Args,
		SessionDir: dir,
		Name:       name,
		SaveScript: cfg.SaveScript,
		Console:    out.Console(),
		Logger:     env.Logger,
	})
}

type checkResult struct {
	Session string           `json:"session"`
	Stage   string           `json:"stage"`
	Chained bool             `json:"chained"`
	State   domain.GateState `json:"state"`
	Error   string           `json:"error,omitempty"`
}

var gateHeaders = []string{"STAGE", "STATE", "OUTCOME", "SCRIPT", "JOB_ID", "PUBLISHED", "DURATION", "FAULTS"}

// gateRow форматирует результат вызова для таблицы.
func gateRow(res *gate.Result) []string {
	outcome, script, jobID := "-", "-", "-"
	if res.Script != nil {
		run := res.GateRun()
		outcome = string(run.Outcome)
		script = run.Script
		if run.JobID != nil {
			jobID = strconv.Itoa(*run.JobID)
		}
	}
	return []string{
		res.Invocation.StageName,
		string(res.State),
		outcome,
		script,
		jobID,
		strconv.FormatBool(res.Published),
		res.Duration().Round(time.Millisecond).String(),
		strconv.Itoa(len(res.Faults)),
	}
}
