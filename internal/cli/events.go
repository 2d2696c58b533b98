package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/mq"
)

// NewEventsCmd создаёт команду чтения событий этапов из RabbitMQ.
func NewEventsCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Tail stage and chain events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFn()
			if err != nil {
				return err
			}
			out := outputFn()
			ctx := cmd.Context()

			if env.Config.RabbitMQ.URL == "" {
				return fmt.Errorf("events: %w", mq.ErrNoURL)
			}
			conn, closeEvents, err := env.OpenEvents(ctx)
			if err != nil {
				return err
			}
			defer closeEvents()

			consumer := mq.NewConsumer(conn, env.Logger, mq.ConsumerConfig{
				Handler: func(_ context.Context, d *mq.Delivery) error {
					return printEvent(out, d)
				},
			})

			err = consumer.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// printEvent выводит событие строкой или JSON.
func printEvent(out *Output, d *mq.Delivery) error {
	if out.jsonMode {
		out.JSON(d.Message)
		return nil
	}

	ts := d.Message.Timestamp.Format(time.RFC3339)
	switch d.Message.Type {
	case mq.MessageTypeStageFinished:
		run, err := mq.ParsePayload[domain.GateRun](&d.Message)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s %s %s/%s %s", ts, d.RoutingKey, run.WorkflowLocation, run.Stage, run.State)
		if run.Error != "" {
			line += ": " + run.Error
		}
		out.Line(line)
	case mq.MessageTypeChainChanged:
		p, err := mq.ParsePayload[mq.ChainStatusPayload](&d.Message)
		if err != nil {
			return err
		}
		out.Line(fmt.Sprintf("%s %s %s/%s %s -> %s", ts, d.RoutingKey, p.Workflow, p.Stage, p.Previous, p.Status))
	default:
		out.Line(fmt.Sprintf("%s %s %s", ts, d.RoutingKey, d.Message.Type))
	}
	return nil
}
