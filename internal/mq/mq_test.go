package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/StageGate/internal/domain"
)

func TestRoutingKeys(t *testing.T) {
	if got := StageRoutingKey(domain.GateStateSucceeded); got != "stage.succeeded" {
		t.Errorf("unexpected stage key: %s", got)
	}
	if got := ChainRoutingKey(domain.ChainStatusFailed); got != "chain.failed" {
		t.Errorf("unexpected chain key: %s", got)
	}
}

func TestParsePayload_GateRun(t *testing.T) {
	jobID := 42
	run := &domain.GateRun{Stage: "RUN", State: domain.GateStateFailed, JobID: &jobID, Error: "boom"}

	// Через JSON, как после доставки
	body, err := json.Marshal(NewMessage(MessageTypeStageFinished, run))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ParsePayload[domain.GateRun](&msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.State != domain.GateStateFailed || got.JobID == nil || *got.JobID != 42 || got.Error != "boom" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestNewConnection_NoURL(t *testing.T) {
	if _, err := NewConnection("", slog.Default()); !errors.Is(err, ErrNoURL) {
		t.Errorf("expected ErrNoURL, got %v", err)
	}
}

// --- Consumer.handleDelivery ---

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}
func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func newTestConsumer(h Handler, requeue bool) *Consumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConsumer(nil, logger, ConsumerConfig{Handler: h, Requeue: requeue})
}

func TestConsumer_HandleDelivery(t *testing.T) {
	payload := ChainStatusPayload{Workflow: "/w", Stage: domain.StageRun, Status: domain.ChainStatusPending}
	body, _ := json.Marshal(NewMessage(MessageTypeChainChanged, payload))

	var got ChainStatusPayload
	var key RoutingKey
	c := newTestConsumer(func(_ context.Context, d *Delivery) error {
		key = d.RoutingKey
		var err error
		got, err = ParsePayload[ChainStatusPayload](&d.Message)
		return err
	}, false)

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, RoutingKey: "chain.pending", Body: body})

	if !ack.acked {
		t.Error("message should be acked")
	}
	if key != "chain.pending" || got != payload {
		t.Errorf("unexpected delivery: %s %+v", key, got)
	}
	if c.queue != QueueStageEvents {
		t.Errorf("expected default queue, got %s", c.queue)
	}
}

func TestConsumer_HandleDelivery_BadBody(t *testing.T) {
	called := false
	c := newTestConsumer(func(context.Context, *Delivery) error { called = true; return nil }, true)

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})

	if called {
		t.Error("handler should not be called")
	}
	if !ack.nacked || ack.requeue {
		t.Error("malformed message should be nacked without requeue")
	}
}

func TestConsumer_HandleDelivery_HandlerError(t *testing.T) {
	body, _ := json.Marshal(NewMessage(MessageTypeStageFinished, domain.GateRun{}))
	c := newTestConsumer(func(context.Context, *Delivery) error { return errors.New("fail") }, true)

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})

	if !ack.nacked || !ack.requeue {
		t.Error("failed message should be requeued")
	}
}
