// Package jobstate — клиент внешнего job-state сервиса (job_state_handler.sh).
//
// Сервис отвечает за зависимости между этапами и учёт job id.
// Каждый вызов — отдельный процесс с явным списком аргументов
// (без интерполяции в shell-строку):
//
//	handler -m <workflow> <stage>   — завершён ли этап (OK / STOP)
//	handler -s <target>             — опубликовать голову цепочки (ERROR / INFO / ...)
//	handler -j <workflow> <stage>   — job id этапа (число / ERROR)
//
// Ответы — свободный текст, контракт ограничен наличием подстрок
// "OK", "ERROR", "INFO" или целым числом.
package jobstate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Флаги режимов сервиса.
const (
	flagQuery    = "-m"
	flagPublish  = "-s"
	flagRegister = "-j"
)

// Client вызывает job-state сервис как подпроцесс.
type Client struct {
	handler     string
	interpreter string
	logger      *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// Handler — путь к исполняемому файлу сервиса.
	Handler string

	// Interpreter — опциональный интерпретатор (например, "bash"),
	// если Handler не исполняемый.
	Interpreter string

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Client.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		handler:     cfg.Handler,
		interpreter: cfg.Interpreter,
		logger:      logger,
	}
}

// Query спрашивает, завершён ли этап stage в цепочке workflow.
func (c *Client) Query(ctx context.Context, workflow, stage string) (Reply, error) {
	return c.call(ctx, flagQuery, workflow, stage)
}

// Publish публикует target как голову цепочки.
func (c *Client) Publish(ctx context.Context, target string) (Reply, error) {
	return c.call(ctx, flagPublish, target)
}

// Register возвращает job id этапа stage в цепочке workflow.
func (c *Client) Register(ctx context.Context, workflow, stage string) (Reply, error) {
	return c.call(ctx, flagRegister, workflow, stage)
}

// call запускает сервис и собирает stdout.
//
// Ошибка запуска или отмена контекста → пустой ответ и ErrSubprocess.
// Ненулевой код выхода с непустым stdout считается ответом.
func (c *Client) call(ctx context.Context, args ...string) (Reply, error) {
	name, argv := c.command(args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, argv...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("calling job-state service", "command", name, "args", argv)

	err := cmd.Run()
	reply := newReply(stdout.String())

	if err != nil {
		var exitErr *exec.ExitError
		if ctx.Err() != nil || !errors.As(err, &exitErr) || reply == "" {
			return "", fmt.Errorf("%w: %s %s: %v (stderr: %s)",
				ErrSubprocess, name, strings.Join(argv, " "), err, strings.TrimSpace(stderr.String()))
		}
		c.logger.Warn("job-state service exited with non-zero status",
			"args", argv,
			"exit_code", exitErr.ExitCode(),
			"reply", reply,
		)
	}

	return reply, nil
}

// command собирает имя процесса и аргументы.
func (c *Client) command(args []string) (string, []string) {
	if c.interpreter == "" {
		return c.handler, args
	}
	return c.interpreter, append([]string{c.handler}, args...)
}
