package logscan

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "StarccmFlex_17.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScan_Markers(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"capitalized", []string{"Iteration 10", "Error: divergence detected"}, true},
		{"lowercase mid-line", []string{"solver error: floating point exception in step 42"}, true},
		{"uppercase", []string{"   ERROR: license checkout failed   "}, true},
		{"errorless", []string{"errorless run"}, false},
		{"space before colon", []string{"Error : not a marker"}, false},
		{"mixed case", []string{"eRRor: not a marker"}, false},
		{"clean", []string{"Iteration 1", "Iteration 2", "Stopping criterion satisfied"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding, err := Scan(writeLog(t, tt.lines...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if finding.Marked != tt.want {
				t.Errorf("expected marked=%v, got %+v", tt.want, finding)
			}
		})
	}
}

func TestScan_FirstFinding(t *testing.T) {
	path := writeLog(t, "ok", "  Error: first  ", "ERROR: second")

	finding, err := Scan(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finding.Line != 2 {
		t.Errorf("expected line 2, got %d", finding.Line)
	}
	if finding.Text != "Error: first" {
		t.Errorf("expected trimmed text, got %q", finding.Text)
	}
}

func TestScan_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	finding, err := Scan(writeLog(t, long, "Error: after long line"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !finding.Marked {
		t.Error("marker after a long line should be found")
	}
}

func TestHasError(t *testing.T) {
	logger := discardLogger()

	if !HasError(logger, writeLog(t, "Error: divergence detected")) {
		t.Error("expected error to be detected")
	}
	if HasError(logger, writeLog(t, "errorless run")) {
		t.Error("errorless run should not be an error")
	}
	// отсутствующий лог — не ошибка
	if HasError(logger, filepath.Join(t.TempDir(), "absent.log")) {
		t.Error("missing log should not be an error")
	}
}

func TestLogPath(t *testing.T) {
	if got := LogPath("/w/RUN", "", 17); got != "/w/RUN/StarccmFlex_17.log" {
		t.Errorf("unexpected path: %s", got)
	}
	if got := LogPath("/w/RUN", "Fluent", 3); got != "/w/RUN/Fluent_3.log" {
		t.Errorf("unexpected path: %s", got)
	}
}

func TestScan_MarkerAfterLongLine(t *testing.T) {
	long := strings.Repeat("0.000123 ", 1<<20) // ~9 MiB таблица невязок
	path := writeLog(t, "Iteration 1", long, "Error: divergence detected")

	finding, err := Scan(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !finding.Marked || finding.Line != 3 {
		t.Errorf("expected marker on line 3, got %+v", finding)
	}
}

func TestScan_LastLineWithoutNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "StarccmFlex_1.log")
	if err := os.WriteFile(path, []byte("ok\nERROR: no newline"), 0o644); err != nil {
		t.Fatal(err)
	}

	finding, err := Scan(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !finding.Marked || finding.Line != 2 {
		t.Errorf("expected marker on line 2, got %+v", finding)
	}
}
