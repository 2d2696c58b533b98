package cli

import (
	"context"
	"log/slog"

	"github.com/shaiso/StageGate/internal/config"
	"github.com/shaiso/StageGate/internal/jobstate"
	"github.com/shaiso/StageGate/internal/mq"
	"github.com/shaiso/StageGate/internal/repo"
	"github.com/shaiso/StageGate/internal/telemetry"
)

// Env — конфигурация и логгер команды.
// Создаётся лениво, после разбора PersistentFlags.
type Env struct {
	Config config.Config
	Logger *slog.Logger
}

// EnvFunc возвращает Env для команды.
type EnvFunc func() (*Env, error)

// LoadEnv читает конфигурацию и настраивает глобальный логгер.
func LoadEnv(configPath string) (*Env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	return &Env{Config: cfg, Logger: logger}, nil
}

// JobState создаёт клиента job-state сервиса.
func (e *Env) JobState() *jobstate.Client {
	return jobstate.New(jobstate.Config{
		Handler:     e.Config.JobState.Handler,
		Interpreter: e.Config.JobState.Interpreter,
		Logger:      e.Logger,
	})
}

// OpenHistory подключается к БД истории.
// Возвращает nil без ошибки, если DB_URL не задан.
func (e *Env) OpenHistory(ctx context.Context) (*repo.GateRunRepo, func(), error) {
	if e.Config.DB.URL == "" {
		return nil, func() {}, nil
	}

	pool, err := repo.NewPool(ctx, e.Config.DB.URL)
	if err != nil {
		return nil, func() {}, err
	}

	runs := repo.NewGateRunRepo(pool)
	if err := runs.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, func() {}, err
	}
	return runs, pool.Close, nil
}

// OpenEvents подключается к RabbitMQ и объявляет топологию.
// Возвращает nil без ошибки, если RABBITMQ_URL не задан.
func (e *Env) OpenEvents(ctx context.Context) (*mq.Connection, func(), error) {
	if e.Config.RabbitMQ.URL == "" {
		return nil, func() {}, nil
	}

	conn, err := mq.NewConnection(e.Config.RabbitMQ.URL, e.Logger)
	if err != nil {
		return nil, func() {}, err
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, func() {}, err
	}
	return conn, func() { conn.Close() }, nil
}
