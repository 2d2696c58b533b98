package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/jobstate"
	"github.com/shaiso/StageGate/internal/mq"
	"github.com/shaiso/StageGate/internal/session"
	"github.com/shaiso/StageGate/internal/telemetry"
)

// fakeJobs отвечает OK для этапов из ok.
type fakeJobs struct {
	ok  map[string]bool
	err error
}

func (j *fakeJobs) Query(_ context.Context, _ string, stage string) (jobstate.Reply, error) {
	if j.err != nil {
		return "", j.err
	}
	if j.ok[stage] {
		return "OK", nil
	}
	return "STOP", nil
}

type fakePublisher struct {
	published []mq.ChainStatusPayload
	err       error
}

func (p *fakePublisher) PublishChainStatus(_ context.Context, payload mq.ChainStatusPayload) error {
	p.published = append(p.published, payload)
	return p.err
}

func newWorkflow(t *testing.T, stages ...string) string {
	t.Helper()
	wf := t.TempDir()
	for _, s := range stages {
		if err := os.MkdirAll(filepath.Join(wf, s), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return wf
}

func statusOf(statuses []StageStatus, stage domain.Stage) domain.ChainStatus {
	for _, st := range statuses {
		if st.Stage == stage {
			return st.Status
		}
	}
	return ""
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Workflows: []string{"/w"}, Schedule: "not a cron"}); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule, got %v", err)
	}
	if _, err := New(Config{}); !errors.Is(err, ErrNoWorkflows) {
		t.Errorf("expected ErrNoWorkflows, got %v", err)
	}
	m, err := New(Config{Workflows: []string{"/w"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.schedule != "*/5 * * * *" {
		t.Errorf("unexpected default schedule: %s", m.schedule)
	}
}

func TestInspect(t *testing.T) {
	wf := newWorkflow(t, "PRE", "RUN")
	if err := session.WriteFailed(filepath.Join(wf, "RUN")); err != nil {
		t.Fatal(err)
	}

	m, err := New(Config{Workflows: []string{wf}, Jobs: &fakeJobs{ok: map[string]bool{"PRE": true, "RUN": true}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses := m.Inspect(context.Background(), wf)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if got := statusOf(statuses, domain.StagePre); got != domain.ChainStatusSucceeded {
		t.Errorf("PRE: expected SUCCEEDED, got %s", got)
	}
	// FAILED важнее ответа сервиса
	if got := statusOf(statuses, domain.StageRun); got != domain.ChainStatusFailed {
		t.Errorf("RUN: expected FAILED, got %s", got)
	}
	if got := statusOf(statuses, domain.StagePost); got != domain.ChainStatusMissing {
		t.Errorf("POST: expected MISSING, got %s", got)
	}
}

func TestInspect_QueryErrorIsPending(t *testing.T) {
	wf := newWorkflow(t, "PRE")
	m, _ := New(Config{Workflows: []string{wf}, Jobs: &fakeJobs{err: jobstate.ErrSubprocess}})

	if got := statusOf(m.Inspect(context.Background(), wf), domain.StagePre); got != domain.ChainStatusPending {
		t.Errorf("expected PENDING, got %s", got)
	}
}

func TestTick_PublishesChangesOnce(t *testing.T) {
	wf := newWorkflow(t, "PRE", "RUN", "POST")
	jobs := &fakeJobs{ok: map[string]bool{"PRE": true}}
	pub := &fakePublisher{}
	metrics := telemetry.NewMetrics()

	m, err := New(Config{Workflows: []string{wf}, Jobs: jobs, Publisher: pub, Metrics: metrics})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	// Первый тик: все три статуса новые
	if err := m.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 3 {
		t.Fatalf("expected 3 events, got %d", len(pub.published))
	}

	// Без изменений — без событий
	if err := m.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 3 {
		t.Fatalf("expected no new events, got %d", len(pub.published))
	}

	// RUN завершился
	jobs.ok["RUN"] = true
	if err := m.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 4 {
		t.Fatalf("expected 1 new event, got %d", len(pub.published))
	}
	last := pub.published[3]
	if last.Stage != domain.StageRun || last.Status != domain.ChainStatusSucceeded || last.Previous != domain.ChainStatusPending {
		t.Errorf("unexpected event: %+v", last)
	}

	count, err := testutil.GatherAndCount(metrics.Registry, "stagegate_chain_status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 gauge series, got %d", count)
	}
}

func TestTick_PublishError(t *testing.T) {
	wf := newWorkflow(t, "PRE")
	pub := &fakePublisher{err: errors.New("broker down")}
	m, _ := New(Config{Workflows: []string{wf}, Jobs: &fakeJobs{}, Publisher: pub})

	if err := m.Tick(context.Background()); err == nil {
		t.Error("expected publish error")
	}
	// Остальные этапы всё равно обработаны
	if len(pub.published) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(pub.published))
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	m, _ := New(Config{Workflows: []string{t.TempDir()}, Jobs: &fakeJobs{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
