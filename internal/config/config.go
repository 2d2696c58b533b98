// Package config собирает конфигурацию StageGate.
//
// Порядок применения (каждый следующий источник перекрывает предыдущий):
//
//  1. Значения по умолчанию (Default)
//  2. YAML файл (--config или STAGEGATE_CONFIG)
//  3. Переменные окружения
//
// Пример stagegate.yaml:
//
//	job_state:
//	  handler: /opt/workflow/job_state_handler.sh
//	  interpreter: bash
//	engine:
//	  binary: starccm+
//	  args: [-np, "8"]
//	  log_prefix: StarccmFlex
//	log:
//	  level: INFO
//	  format: json
//	monitor:
//	  schedule: "*/5 * * * *"
//	  workflows: [/scratch/wf1, /scratch/wf2]
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath — путь к YAML файлу, если --config не указан.
const EnvConfigPath = "STAGEGATE_CONFIG"

// Config — конфигурация всех компонентов.
type Config struct {
	JobState JobStateConfig `yaml:"job_state"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// JobStateConfig — job-state сервис.
type JobStateConfig struct {
	Handler     string `yaml:"handler"`
	Interpreter string `yaml:"interpreter"`
}

// EngineConfig — солвер в пакетном режиме.
type EngineConfig struct {
	Binary     string   `yaml:"binary"`
	Args       []string `yaml:"args,omitempty"`
	SaveScript string   `yaml:"save_script,omitempty"`
	LogPrefix  string   `yaml:"log_prefix"`
}

// LogConfig — structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DBConfig — история вызовов. Пустой URL отключает историю.
type DBConfig struct {
	URL string `yaml:"url,omitempty"`
}

// RabbitMQConfig — события этапов. Пустой URL отключает события.
type RabbitMQConfig struct {
	URL string `yaml:"url,omitempty"`
}

// MetricsConfig — метрики одиночного вызова gate.
type MetricsConfig struct {
	// Textfile — файл для node_exporter textfile collector.
	Textfile string `yaml:"textfile,omitempty"`
}

// MonitorConfig — демон stagegate-monitor.
type MonitorConfig struct {
	Schedule  string   `yaml:"schedule"`
	Workflows []string `yaml:"workflows,omitempty"`
	Port      string   `yaml:"port"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		JobState: JobStateConfig{
			Handler:     "job_state_handler.sh",
			Interpreter: "bash",
		},
		Engine: EngineConfig{
			Binary:    "starccm+",
			LogPrefix: "StarccmFlex",
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "json",
		},
		Monitor: MonitorConfig{
			Schedule: "*/5 * * * *",
			Port:     "8090",
		},
	}
}

// Load собирает конфигурацию из файла path и окружения.
//
// Пустой path — берётся STAGEGATE_CONFIG; если и он пуст, файл не читается.
// Отсутствующий файл, указанный через STAGEGATE_CONFIG, не ошибка.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = getenv(EnvConfigPath)
	}

	if path != "" {
		err := cfg.readFile(path)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return cfg, err
		}
	}

	cfg.applyEnv(getenv)
	return cfg, nil
}

// readFile накладывает YAML файл на текущие значения.
func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv накладывает переменные окружения.
func (c *Config) applyEnv(getenv func(string) string) {
	setString(&c.JobState.Handler, getenv("JOB_STATE_HANDLER"))
	setString(&c.JobState.Interpreter, getenv("JOB_STATE_INTERPRETER"))
	setString(&c.Engine.LogPrefix, getenv("LOG_PREFIX"))
	setString(&c.Engine.Binary, getenv("ENGINE_BINARY"))
	setString(&c.Engine.SaveScript, getenv("ENGINE_SAVE_SCRIPT"))
	if v := getenv("ENGINE_ARGS"); v != "" {
		c.Engine.Args = strings.Fields(v)
	}
	setString(&c.DB.URL, getenv("DB_URL"))
	setString(&c.RabbitMQ.URL, getenv("RABBITMQ_URL"))
	setString(&c.Metrics.Textfile, getenv("METRICS_TEXTFILE"))
	setString(&c.Log.Level, getenv("LOG_LEVEL"))
	setString(&c.Log.Format, getenv("LOG_FORMAT"))
	setString(&c.Monitor.Schedule, getenv("MONITOR_SCHEDULE"))
	setString(&c.Monitor.Port, getenv("MONITOR_PORT"))
	if v := getenv("MONITOR_WORKFLOWS"); v != "" {
		c.Monitor.Workflows = splitList(v)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// splitList разбирает список через запятую, пустые элементы отбрасываются.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
