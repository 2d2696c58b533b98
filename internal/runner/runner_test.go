package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/jobstate"
	"github.com/shaiso/StageGate/internal/session"
	"github.com/shaiso/StageGate/internal/simulation"
)

// --- fakes ---

type fakeEngine struct {
	dir      string
	playback simulation.Playback
	playErr  error
	played   []string
	console  []string
}

func (e *fakeEngine) SessionDir() string       { return e.dir }
func (e *fakeEngine) PresentationName() string { return "model" }
func (e *fakeEngine) SetMaxSteps(int) error    { return nil }
func (e *fakeEngine) SaveState(context.Context, string) error {
	return nil
}
func (e *fakeEngine) Println(msg string) { e.console = append(e.console, msg) }

func (e *fakeEngine) Play(_ context.Context, script string) (simulation.Playback, error) {
	e.played = append(e.played, script)
	return e.playback, e.playErr
}

type fakeJobs struct {
	reply jobstate.Reply
	err   error
	calls int
}

func (j *fakeJobs) Register(context.Context, string, string) (jobstate.Reply, error) {
	j.calls++
	return j.reply, j.err
}

func newInvocation(t *testing.T) domain.Invocation {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "wf", "RUN")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	inv, err := session.Resolve(dir, "model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return inv
}

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- Run ---

func TestRun_Verified(t *testing.T) {
	inv := newInvocation(t)
	writeLog(t, inv.SessionLocation, "StarccmFlex_4711.log", "Iteration 1\nIteration 2\nfinished\n")

	engine := &fakeEngine{dir: inv.SessionLocation}
	jobs := &fakeJobs{reply: "4711"}
	r := New(Config{Engine: engine, Jobs: jobs})

	res := r.Run(context.Background(), inv, filepath.Join(inv.SessionLocation, "run_solve.java"))

	if res.Outcome != domain.OutcomeVerified {
		t.Fatalf("expected VERIFIED, got %s (err: %v)", res.Outcome, res.Err)
	}
	if res.JobID == nil || *res.JobID != 4711 {
		t.Errorf("expected job id 4711, got %v", res.JobID)
	}
	if res.Err != nil {
		t.Errorf("unexpected error: %v", res.Err)
	}
	if session.HasFailed(inv.SessionLocation) {
		t.Error("FAILED should not be created")
	}
	if engine.console[0] != "start play" || engine.console[1] != "finish play" {
		t.Errorf("unexpected console trace: %v", engine.console)
	}
}

func TestRun_Interrupted(t *testing.T) {
	inv := newInvocation(t)
	engine := &fakeEngine{dir: inv.SessionLocation, playback: simulation.Playback{Interrupted: true, ExitCode: 3}}
	jobs := &fakeJobs{reply: "1"}
	r := New(Config{Engine: engine, Jobs: jobs})

	res := r.Run(context.Background(), inv, "run_solve.java")

	if res.Outcome != domain.OutcomeFailed {
		t.Fatalf("expected FAILED, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, ErrScriptInterrupted) {
		t.Errorf("expected ErrScriptInterrupted, got %v", res.Err)
	}
	if !session.HasFailed(inv.SessionLocation) {
		t.Error("FAILED should be created")
	}
	// Job id не запрашивается после прерывания
	if jobs.calls != 0 {
		t.Errorf("expected no Register calls, got %d", jobs.calls)
	}
}

func TestRun_PlayError(t *testing.T) {
	inv := newInvocation(t)
	engine := &fakeEngine{dir: inv.SessionLocation, playErr: errors.New("engine crashed")}
	r := New(Config{Engine: engine, Jobs: &fakeJobs{}})

	res := r.Run(context.Background(), inv, "run_solve.java")

	if res.Outcome != domain.OutcomeFailed || !errors.Is(res.Err, ErrScriptInterrupted) {
		t.Fatalf("expected FAILED with ErrScriptInterrupted, got %s: %v", res.Outcome, res.Err)
	}
}

func TestRun_ErrorMarkerInLog(t *testing.T) {
	inv := newInvocation(t)
	writeLog(t, inv.SessionLocation, "Solver_12.log", "ok\nERROR: floating point exception\nmore\n")

	engine := &fakeEngine{dir: inv.SessionLocation}
	r := New(Config{Engine: engine, Jobs: &fakeJobs{reply: "12"}, LogPrefix: "Solver"})

	res := r.Run(context.Background(), inv, "run_solve.java")

	if res.Outcome != domain.OutcomeFailed {
		t.Fatalf("expected FAILED, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, ErrSimulationLog) {
		t.Errorf("expected ErrSimulationLog, got %v", res.Err)
	}
	if res.Finding.Line != 2 {
		t.Errorf("expected finding on line 2, got %d", res.Finding.Line)
	}
	if !session.HasFailed(inv.SessionLocation) {
		t.Error("FAILED should be created")
	}
}

func TestRun_NoErrorWithoutColon(t *testing.T) {
	inv := newInvocation(t)
	writeLog(t, inv.SessionLocation, "StarccmFlex_5.log", "errorless run\nError estimate 1e-5\n")

	r := New(Config{Engine: &fakeEngine{dir: inv.SessionLocation}, Jobs: &fakeJobs{reply: "5"}})

	res := r.Run(context.Background(), inv, "run_solve.java")
	if res.Outcome != domain.OutcomeVerified {
		t.Errorf("expected VERIFIED, got %s (err: %v)", res.Outcome, res.Err)
	}
}

func TestRun_Unverified(t *testing.T) {
	tests := []struct {
		name string
		jobs *fakeJobs
	}{
		{"error reply", &fakeJobs{reply: "ERROR: no job"}},
		{"not an integer", &fakeJobs{reply: "job-17"}},
		{"subprocess failure", &fakeJobs{err: jobstate.ErrSubprocess}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvocation(t)
			engine := &fakeEngine{dir: inv.SessionLocation}
			r := New(Config{Engine: engine, Jobs: tt.jobs})

			res := r.Run(context.Background(), inv, "run_solve.java")

			if res.Outcome != domain.OutcomeUnverified {
				t.Fatalf("expected UNVERIFIED, got %s", res.Outcome)
			}
			if !errors.Is(res.Err, jobstate.ErrJobResolution) {
				t.Errorf("expected ErrJobResolution, got %v", res.Err)
			}
			if res.JobID != nil {
				t.Errorf("expected no job id, got %d", *res.JobID)
			}
			// UNVERIFIED — не провал
			if session.HasFailed(inv.SessionLocation) {
				t.Error("FAILED should not be created")
			}

			var traced bool
			for _, line := range engine.console {
				if strings.HasPrefix(line, "Cannot find the job_id") {
					traced = true
				}
			}
			if !traced {
				t.Errorf("expected job id trace in console: %v", engine.console)
			}
		})
	}
}

func TestRun_MissingLogIsUnverified(t *testing.T) {
	inv := newInvocation(t)
	r := New(Config{Engine: &fakeEngine{dir: inv.SessionLocation}, Jobs: &fakeJobs{reply: "99"}})

	res := r.Run(context.Background(), inv, "run_solve.java")

	if res.Outcome != domain.OutcomeUnverified {
		t.Fatalf("expected UNVERIFIED for missing log, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, ErrLogUnavailable) {
		t.Errorf("expected ErrLogUnavailable, got %v", res.Err)
	}
	if res.JobID == nil || *res.JobID != 99 {
		t.Errorf("expected job id 99, got %v", res.JobID)
	}
	if session.HasFailed(inv.SessionLocation) {
		t.Error("FAILED should not be created")
	}
}
