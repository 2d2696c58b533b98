package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

// Переменные окружения, передаваемые процессу солвера.
const (
	EnvMaxSteps = "STAGEGATE_MAX_STEPS"
	EnvSaveAs   = "STAGEGATE_SAVE_AS"
)

// Batch запускает солвер отдельным процессом на каждый скрипт.
type Batch struct {
	binary     string
	args       []string
	sessionDir string
	name       string
	saveScript string
	console    io.Writer
	logger     *slog.Logger

	mu       sync.Mutex
	maxSteps int
}

// BatchConfig — конфигурация Batch.
type BatchConfig struct {
	// Binary — исполняемый файл солвера (например, starccm+).
	Binary string

	// Args — дополнительные аргументы перед -batch (например, -np 8).
	Args []string

	// SessionDir — директория сессии.
	SessionDir string

	// Name — имя симуляции без .sim.
	Name string

	// SaveScript — скрипт сохранения состояния (опционально).
	// Без него состояние сохраняет сам солвер в конце скрипта.
	SaveScript string

	// Console — консоль движка (default: os.Stdout).
	Console io.Writer

	// Logger
	Logger *slog.Logger
}

// NewBatch создаёт новый Batch.
func NewBatch(cfg BatchConfig) (*Batch, error) {
	if cfg.Binary == "" {
		return nil, ErrNoBinary
	}

	// Солвер запускается в директории сессии, пути должны быть абсолютными
	sessionDir, err := filepath.Abs(cfg.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("resolve session dir: %w", err)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Batch{
		binary:     cfg.Binary,
		args:       cfg.Args,
		sessionDir: sessionDir,
		name:       cfg.Name,
		saveScript: cfg.SaveScript,
		console:    console,
		logger:     logger,
	}, nil
}

// SessionDir возвращает директорию сессии.
func (b *Batch) SessionDir() string {
	return b.sessionDir
}

// PresentationName возвращает имя симуляции.
func (b *Batch) PresentationName() string {
	return b.name
}

// SetMaxSteps запоминает лимит шагов для следующих запусков.
func (b *Batch) SetMaxSteps(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxSteps, n)
	}
	b.mu.Lock()
	b.maxSteps = n
	b.mu.Unlock()
	return nil
}

// Play запускает солвер со скриптом.
// Ненулевой код выхода означает прерывание исключением.
func (b *Batch) Play(ctx context.Context, script string) (Playback, error) {
	code, err := b.run(ctx, script, nil)
	if err != nil {
		return Playback{}, err
	}
	return Playback{Interrupted: code != 0, ExitCode: code}, nil
}

// SaveState сохраняет состояние через SaveScript.
func (b *Batch) SaveState(ctx context.Context, path string) error {
	if b.saveScript == "" {
		b.logger.Debug("no save script configured, state is saved by the solver", "path", path)
		return nil
	}

	code, err := b.run(ctx, b.saveScript, []string{EnvSaveAs + "=" + path})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%w: save script exited with %d", ErrSaveFailed, code)
	}
	return nil
}

// Println пишет строку в консоль движка.
func (b *Batch) Println(msg string) {
	fmt.Fprintln(b.console, msg)
}

// run запускает процесс солвера и возвращает код выхода.
func (b *Batch) run(ctx context.Context, script string, env []string) (int, error) {
	simFile := filepath.Join(b.sessionDir, b.name+".sim")
	script, err := filepath.Abs(script)
	if err != nil {
		return -1, fmt.Errorf("resolve script: %w", err)
	}

	args := make([]string, 0, len(b.args)+3)
	args = append(args, b.args...)
	args = append(args, "-batch", script, simFile)

	cmd := exec.CommandContext(ctx, b.binary, args...)
	cmd.Dir = b.sessionDir
	cmd.Stdout = b.console
	cmd.Stderr = b.console
	cmd.Env = append(os.Environ(), env...)

	b.mu.Lock()
	if b.maxSteps > 0 {
		cmd.Env = append(cmd.Env, EnvMaxSteps+"="+strconv.Itoa(b.maxSteps))
	}
	b.mu.Unlock()

	b.logger.Debug("starting solver", "binary", b.binary, "args", args)

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("run solver: %w", err)
	}
	return 0, nil
}
