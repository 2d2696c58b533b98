package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/mq"
	"github.com/shaiso/StageGate/internal/monitor"
)

func newTestOutput(jsonMode bool) (*Output, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewOutputTo(jsonMode, &buf, &bytes.Buffer{}), &buf
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- Output ---

func TestOutput_Table(t *testing.T) {
	out, buf := newTestOutput(false)
	out.Print([]string{"KEY", "VALUE"}, [][]string{{"iterator", "42"}}, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "---") || !strings.Contains(lines[2], "iterator") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

func TestOutput_Console(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if NewOutputTo(false, &stdout, &stderr).Console() != &stdout {
		t.Error("table mode console should be stdout")
	}
	if NewOutputTo(true, &stdout, &stderr).Console() != &stderr {
		t.Error("json mode console should be stderr")
	}
}

// --- params ---

func TestParamsCmd(t *testing.T) {
	path := writeFile(t, "parameters.txt", "# header\n[RUN]\nITERATOR = 42\nProject: PRD\niterator = 7\n")

	out, buf := newTestOutput(true)
	if err := execute(t, NewParamsCmd(func() *Output { return out }), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if got["iterator"] != "42" || got["project"] != "PRD" || len(got) != 2 {
		t.Errorf("unexpected params: %v", got)
	}
}

func TestParamsCmd_MissingFile(t *testing.T) {
	out, _ := newTestOutput(false)
	err := execute(t, NewParamsCmd(func() *Output { return out }), filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

// --- scan ---

func TestScanCmd(t *testing.T) {
	clean := writeFile(t, "clean.log", "iteration 1\nerrorless\n")
	dirty := writeFile(t, "dirty.log", "iteration 1\nERROR: divergence detected\n")

	out, buf := newTestOutput(false)
	if err := execute(t, NewScanCmd(func() *Output { return out }), clean); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "false") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	out, buf = newTestOutput(false)
	err := execute(t, NewScanCmd(func() *Output { return out }), dirty)
	if !errors.Is(err, ErrMarkerFound) {
		t.Fatalf("expected ErrMarkerFound, got %v", err)
	}
	if !strings.Contains(buf.String(), "divergence detected") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

// --- rows ---

func TestHistoryRows(t *testing.T) {
	jobID := 12
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	runs := []domain.GateRun{
		{ID: uuid.New(), Stage: "RUN", State: domain.GateStateSucceeded, Outcome: domain.OutcomeVerified,
			JobID: &jobID, Published: true, StartedAt: started, FinishedAt: started.Add(90 * time.Second)},
		{ID: uuid.New(), Stage: "POST", State: domain.GateStateUnrunnable, StartedAt: started, FinishedAt: started},
	}

	rows := historyRows(runs)
	if rows[0][4] != "12" || rows[0][6] != "1m30s" || rows[0][5] != "2026-01-02T03:04:05Z" || rows[0][7] != "true" {
		t.Errorf("unexpected row: %v", rows[0])
	}
	if rows[1][3] != "-" || rows[1][4] != "-" || rows[1][7] != "false" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestStatusRows(t *testing.T) {
	rows := statusRows([]monitor.StageStatus{
		{Workflow: "/w", Stage: domain.StagePre, Status: domain.ChainStatusSucceeded},
	})
	if len(rows) != 1 || rows[0][1] != "PRE" || rows[0][2] != "SUCCEEDED" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

// --- events ---

func TestPrintEvent(t *testing.T) {
	payload := mq.ChainStatusPayload{Workflow: "/w", Stage: domain.StageRun, Status: domain.ChainStatusFailed, Previous: domain.ChainStatusPending}
	msg := mq.NewMessage(mq.MessageTypeChainChanged, payload)

	// Через JSON, как после доставки
	body, _ := json.Marshal(msg)
	var delivered mq.Message
	if err := json.Unmarshal(body, &delivered); err != nil {
		t.Fatal(err)
	}

	out, buf := newTestOutput(false)
	if err := printEvent(out, &mq.Delivery{Message: delivered, RoutingKey: "chain.failed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "chain.failed /w/RUN PENDING -> FAILED") {
		t.Errorf("unexpected line: %s", buf.String())
	}
}
