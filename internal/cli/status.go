package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/monitor"
	"github.com/shaiso/StageGate/internal/repo"
)

// NewStatusCmd создаёт команду разовой проверки цепочек.
func NewStatusCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status WORKFLOW...",
		Short: "Show PRE/RUN/POST status of workflows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFn()
			if err != nil {
				return err
			}
			out := outputFn()

			m, err := monitor.New(monitor.Config{
				Workflows: args,
				Schedule:  env.Config.Monitor.Schedule,
				Jobs:      env.JobState(),
				Logger:    env.Logger,
			})
			if err != nil {
				return err
			}

			var statuses []monitor.StageStatus
			for _, wf := range args {
				statuses = append(statuses, m.Inspect(cmd.Context(), wf)...)
			}

			out.Print([]string{"WORKFLOW", "STAGE", "STATUS"}, statusRows(statuses), statuses)
			return nil
		},
	}
}

func statusRows(statuses []monitor.StageStatus) [][]string {
	rows := make([][]string, len(statuses))
	for i, st := range statuses {
		rows[i] = []string{st.Workflow, st.Stage.String(), string(st.Status)}
	}
	return rows
}

// NewHistoryCmd создаёт команду просмотра истории вызовов.
func NewHistoryCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history WORKFLOW",
		Short: "List recorded gate invocations for a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFn()
			if err != nil {
				return err
			}
			out := outputFn()
			ctx := cmd.Context()

			if env.Config.DB.URL == "" {
				return fmt.Errorf("history: %w", repo.ErrNoDSN)
			}
			runs, closeHistory, err := env.OpenHistory(ctx)
			if err != nil {
				return err
			}
			defer closeHistory()

			list, err := runs.ListByWorkflow(ctx, args[0], limit)
			if err != nil {
				return err
			}

			out.Print(historyHeaders, historyRows(list), list)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default 50)")
	return cmd
}

var historyHeaders = []string{"ID", "STAGE", "STATE", "OUTCOME", "JOB_ID", "STARTED", "DURATION", "PUBLISHED"}

func historyRows(runs []domain.GateRun) [][]string {
	rows := make([][]string, len(runs))
	for i := range runs {
		r := &runs[i]
		jobID, outcome := "-", "-"
		if r.JobID != nil {
			jobID = strconv.Itoa(*r.JobID)
		}
		if r.Outcome != "" {
			outcome = string(r.Outcome)
		}
		rows[i] = []string{
			r.ID.String(),
			r.Stage,
			string(r.State),
			outcome,
			jobID,
			r.StartedAt.Format(time.RFC3339),
			r.Duration().Round(time.Second).String(),
			strconv.FormatBool(r.Published),
		}
	}
	return rows
}
