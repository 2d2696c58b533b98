package config

import (
	"os"
	"path/filepath"
	"testing"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", envFrom(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Default()
	if cfg.JobState != want.JobState {
		t.Errorf("unexpected job state config: %+v", cfg.JobState)
	}
	if cfg.Engine.LogPrefix != "StarccmFlex" {
		t.Errorf("unexpected log prefix: %s", cfg.Engine.LogPrefix)
	}
	if cfg.Monitor.Schedule != "*/5 * * * *" {
		t.Errorf("unexpected schedule: %s", cfg.Monitor.Schedule)
	}
	if cfg.DB.URL != "" || cfg.RabbitMQ.URL != "" {
		t.Error("history and events should be disabled by default")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagegate.yaml")
	yaml := `
job_state:
  handler: /opt/wf/job_state_handler.sh
engine:
  binary: /opt/solver/bin/solver
  args: [-np, "8"]
log:
  level: DEBUG
monitor:
  workflows: [/scratch/a]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{
		"LOG_LEVEL":         "WARN",
		"MONITOR_WORKFLOWS": "/scratch/b, ,/scratch/c",
		"ENGINE_ARGS":       "-np 16 -power",
	}

	cfg, err := load(path, envFrom(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.JobState.Handler != "/opt/wf/job_state_handler.sh" {
		t.Errorf("handler from file expected, got %s", cfg.JobState.Handler)
	}
	// Значение по умолчанию сохраняется, если файл его не задаёт
	if cfg.JobState.Interpreter != "bash" {
		t.Errorf("default interpreter expected, got %s", cfg.JobState.Interpreter)
	}
	if cfg.Engine.Binary != "/opt/solver/bin/solver" {
		t.Errorf("binary from file expected, got %s", cfg.Engine.Binary)
	}
	if cfg.Log.Level != "WARN" {
		t.Errorf("env should override file, got %s", cfg.Log.Level)
	}
	if len(cfg.Engine.Args) != 3 || cfg.Engine.Args[1] != "16" {
		t.Errorf("unexpected engine args: %v", cfg.Engine.Args)
	}
	if len(cfg.Monitor.Workflows) != 2 || cfg.Monitor.Workflows[1] != "/scratch/c" {
		t.Errorf("unexpected workflows: %v", cfg.Monitor.Workflows)
	}
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagegate.yaml")
	if err := os.WriteFile(path, []byte("db:\n  url: postgres://localhost/stagegate\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load("", envFrom(map[string]string{EnvConfigPath: path}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DB.URL != "postgres://localhost/stagegate" {
		t.Errorf("unexpected db url: %s", cfg.DB.URL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	// Явно указанный файл обязателен
	if _, err := load(missing, envFrom(nil)); err == nil {
		t.Error("expected error for missing explicit config")
	}

	// Файл из окружения — нет
	if _, err := load("", envFrom(map[string]string{EnvConfigPath: missing})); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := load(path, envFrom(nil)); err == nil {
		t.Error("expected parse error")
	}
}
