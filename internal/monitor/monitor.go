package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/jobstate"
	"github.com/shaiso/StageGate/internal/mq"
	"github.com/shaiso/StageGate/internal/session"
	"github.com/shaiso/StageGate/internal/telemetry"
)

// cronParser — стандартные пятипольные cron-выражения.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule проверяет cron-выражение.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, expr, err)
	}
	return nil
}

// StatusQuerier спрашивает job-state сервис о завершении этапа.
type StatusQuerier interface {
	Query(ctx context.Context, workflow, stage string) (jobstate.Reply, error)
}

// ChainPublisher публикует изменения статуса (mq.Publisher).
type ChainPublisher interface {
	PublishChainStatus(ctx context.Context, payload mq.ChainStatusPayload) error
}

// StageStatus — наблюдаемый статус одного этапа.
type StageStatus struct {
	Workflow string             `json:"workflow"`
	Stage    domain.Stage       `json:"stage"`
	Status   domain.ChainStatus `json:"status"`
}

// Monitor периодически проверяет цепочки PRE → RUN → POST.
type Monitor struct {
	workflows []string
	schedule  string
	jobs      StatusQuerier
	publisher ChainPublisher
	metrics   *telemetry.Metrics
	logger    *slog.Logger

	mu   sync.Mutex
	last map[string]domain.ChainStatus
}

// Config — конфигурация Monitor.
type Config struct {
	Workflows []string
	Schedule  string // cron-выражение (default: "*/5 * * * *")
	Jobs      StatusQuerier

	// Необязательные
	Publisher ChainPublisher
	Metrics   *telemetry.Metrics

	Logger *slog.Logger
}

// New создаёт новый Monitor.
func New(cfg Config) (*Monitor, error) {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}
	if len(cfg.Workflows) == 0 {
		return nil, ErrNoWorkflows
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		workflows: cfg.Workflows,
		schedule:  schedule,
		jobs:      cfg.Jobs,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "monitor"),
		last:      make(map[string]domain.ChainStatus),
	}, nil
}

// Start запускает тики по расписанию и блокируется до отмены ctx.
//
// Тики не перекрываются: если предыдущий ещё идёт, следующий пропускается.
func (m *Monitor) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{m.logger})),
	)

	_, err := c.AddFunc(m.schedule, func() {
		if err := m.Tick(ctx); err != nil {
			m.logger.Error("monitor tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, m.schedule, err)
	}

	m.logger.Info("monitor started", "schedule", m.schedule, "workflows", len(m.workflows))
	c.Start()

	<-ctx.Done()

	// Ждём завершения текущего тика
	<-c.Stop().Done()
	m.logger.Info("monitor stopped")
	return nil
}

// Tick проверяет все workflows и публикует изменившиеся статусы.
//
// Ошибки публикации одного этапа не блокируют остальные.
func (m *Monitor) Tick(ctx context.Context) error {
	var errs []error
	var changed int

	for _, wf := range m.workflows {
		for _, st := range m.Inspect(ctx, wf) {
			m.metrics.ChainStatus(st.Workflow, st.Stage.String(), st.Status.Value())

			prev, isChanged := m.record(st)
			if !isChanged {
				continue
			}
			changed++

			m.logger.Info("stage status changed",
				"workflow", st.Workflow,
				"stage", st.Stage,
				"status", st.Status,
				"previous", prev,
			)

			if m.publisher == nil {
				continue
			}
			err := m.publisher.PublishChainStatus(ctx, mq.ChainStatusPayload{
				Workflow: st.Workflow,
				Stage:    st.Stage,
				Status:   st.Status,
				Previous: prev,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("publish %s/%s: %w", st.Workflow, st.Stage, err))
			}
		}
	}

	m.logger.Debug("monitor tick completed", "workflows", len(m.workflows), "changed", changed)
	return errors.Join(errs...)
}

// record запоминает статус и возвращает предыдущий.
// changed=true при первом наблюдении и при смене статуса.
func (m *Monitor) record(st StageStatus) (prev domain.ChainStatus, changed bool) {
	key := filepath.Join(st.Workflow, st.Stage.String())

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, seen := m.last[key]
	m.last[key] = st.Status
	return prev, !seen || prev != st.Status
}

// Inspect возвращает статусы PRE, RUN, POST в workflow.
//
//   - директории этапа нет → MISSING
//   - в директории есть FAILED → FAILED
//   - job-state сервис отвечает OK → SUCCEEDED
//   - иначе → PENDING
func (m *Monitor) Inspect(ctx context.Context, workflow string) []StageStatus {
	statuses := make([]StageStatus, 0, len(domain.Stages()))
	for _, stage := range domain.Stages() {
		statuses = append(statuses, StageStatus{
			Workflow: workflow,
			Stage:    stage,
			Status:   m.inspectStage(ctx, workflow, stage),
		})
	}
	return statuses
}

func (m *Monitor) inspectStage(ctx context.Context, workflow string, stage domain.Stage) domain.ChainStatus {
	dir := filepath.Join(workflow, stage.String())

	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return domain.ChainStatusMissing
	}
	if session.HasFailed(dir) {
		return domain.ChainStatusFailed
	}

	reply, err := m.jobs.Query(ctx, workflow, stage.String())
	if err != nil {
		m.logger.Warn("stage status query failed", "workflow", workflow, "stage", stage, "error", err)
		return domain.ChainStatusPending
	}
	if reply.OK() {
		return domain.ChainStatusSucceeded
	}
	return domain.ChainStatusPending
}

// cronLogger направляет логи cron в slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
