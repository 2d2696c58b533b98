// StageGate CLI — привратник этапов PRE → RUN → POST.
//
// Использование:
//
//	stagegate [--config FILE] [--json] <command> [flags]
//
// Команды:
//
//	gate      Проверить предыдущий этап, выполнить скрипт этапа, опубликовать этап
//	check     Проверить, можно ли запускать этап
//	params    Показать разобранный parameters.txt
//	scan      Проверить лог солвера на маркеры ошибок
//	status    Статус цепочек этапов
//	history   История вызовов gate
//	events    Поток событий этапов
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/StageGate/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "stagegate",
		Short:         "StageGate — stage gatekeeper for chained simulation workflows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $STAGEGATE_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	envFn := func() (*cli.Env, error) { return cli.LoadEnv(configPath) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewGateCmd(envFn, outputFn),
		cli.NewCheckCmd(envFn, outputFn),
		cli.NewParamsCmd(outputFn),
		cli.NewScanCmd(outputFn),
		cli.NewStatusCmd(envFn, outputFn),
		cli.NewHistoryCmd(envFn, outputFn),
		cli.NewEventsCmd(envFn, outputFn),
	)

	// graceful shutdown: солвер и job-state процессы получают отмену через ctx
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
