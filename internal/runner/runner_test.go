package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/codeaudit/internal/agents"
	"github.com/vinayprograms/codeaudit/internal/artifacts"
	"github.com/vinayprograms/codeaudit/internal/executor"
	"github.com/vinayprograms/codeaudit/internal/panel"
	"github.com/vinayprograms/codeaudit/internal/plan"
	"github.com/vinayprograms/codeaudit/internal/session"
	"github.com/vinayprograms/codeaudit/internal/usage"
)

// recordingProgress captures every call in order.
type recordingProgress struct {
	mu       sync.Mutex
	calls    []string
	statuses map[int]panel.Status
	scores   map[int]*int
	tokens   int
	cost     float64
}

func newRecordingProgress() *recordingProgress {
	return &recordingProgress{statuses: map[int]panel.Status{}, scores: map[int]*int{}}
}

func (p *recordingProgress) record(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, s)
}

func (p *recordingProgress) Start()             { p.record("start") }
func (p *recordingProgress) Stop()              { p.record("stop") }
func (p *recordingProgress) SetRunning(idx int) { p.record("running") }
func (p *recordingProgress) Complete(idx int, s panel.Status, d time.Duration, score *int) {
	p.record("complete")
	p.statuses[idx] = s
	p.scores[idx] = score
}
func (p *recordingProgress) SetStats(tokens int, cost float64) {
	p.tokens, p.cost = tokens, cost
}

type captureSink struct{ events []session.Event }

func (c *captureSink) Emit(e session.Event) { c.events = append(c.events, e) }
func (c *captureSink) Close() error         { return nil }

func threeStepPlan(t *testing.T) *plan.Plan {
	t.Helper()
	rules := t.TempDir()
	for _, name := range []string{"01-overview.md", "02-deps.md", "03-report.md"} {
		if err := os.WriteFile(filepath.Join(rules, name), []byte("rules for "+name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	content := "---\nname: health\n---\n" +
		"1. `01-overview.md` - Overview\n" +
		"2. `02-deps.md` - Dependencies\n" +
		"3. `03-report.md` - Report\n"
	p, err := plan.ParseString(content, rules, "health")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// scriptAgent succeeds with usage telemetry on the first two steps, writes a
// scored artifact during the first and exits 1 on the third.
const scriptAgent = `input=$(cat)
case "$input" in
  *"step 1 of 3"*)
    mkdir -p reports/.artifacts
    printf 'Summary\nScore: 91/100\n' > reports/.artifacts/step_00_overview.md
    ;;
  *"step 3 of 3"*)
    echo "boom" >&2
    exit 1
    ;;
esac
echo "working"
echo '{"type":"result","usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":10}}'
`

func TestRun_EndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-script agents need a POSIX shell")
	}

	workDir := t.TempDir()
	bin := filepath.Join(t.TempDir(), "fake-agent")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+scriptAgent), 0755); err != nil {
		t.Fatal(err)
	}
	agent := &agents.Resolved{
		Name:   "fake",
		Binary: bin,
		Model:  "sonnet",
		Config: &agents.Config{
			Name:        "fake",
			PromptVia:   agents.PromptStdin,
			BuildArgs:   func(model, prompt string) []string { return nil },
			ParseTokens: agents.ParseJSONUsage,
		},
	}

	p := threeStepPlan(t)
	collector := artifacts.New(filepath.Join(workDir, "reports", ".artifacts"), p.Meta.ArtifactPrefix)
	exec := executor.New(agent, workDir, executor.WithContextSource(collector), executor.WithTimeout(30*time.Second))
	progress := newRecordingProgress()
	sink := &captureSink{}

	r := New(p, agent, exec,
		WithScorer(collector),
		WithProgress(progress),
		WithSink(sink),
		WithWorkDir(workDir),
	)
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Results))
	}
	summary := result.Summary(r.ReportExists())
	if summary.Passed != 2 || summary.Failed != 1 {
		t.Errorf("expected 2 passed 1 failed, got %d/%d", summary.Passed, summary.Failed)
	}
	if result.Status != session.StatusFailed || result.Interrupted {
		t.Errorf("unexpected status %s interrupted=%v", result.Status, result.Interrupted)
	}

	want := []panel.Status{panel.StatusStrong, panel.StatusInfo, panel.StatusError}
	for i, s := range want {
		if result.Statuses[i] != s || progress.statuses[i] != s {
			t.Errorf("step %d: expected %s, got %s / %s", i, s, result.Statuses[i], progress.statuses[i])
		}
	}
	if progress.scores[0] == nil || *progress.scores[0] != 91 {
		t.Error("step 0 score should come from its artifact")
	}

	if result.Tokens.InputTokens != 200 || result.Tokens.OutputTokens != 100 || result.Tokens.CacheReadTokens != 20 {
		t.Errorf("unexpected totals %+v", result.Tokens)
	}
	if progress.tokens != 320 {
		t.Errorf("panel tokens should include cache reads, got %d", progress.tokens)
	}
	if summary.Tokens != 300 {
		t.Errorf("summary tokens should be input+output, got %d", summary.Tokens)
	}
	if result.Cost <= 0 || progress.cost != result.Cost {
		t.Errorf("cost mismatch: result %f panel %f", result.Cost, progress.cost)
	}

	if first, last := progress.calls[0], progress.calls[len(progress.calls)-1]; first != "start" || last != "stop" {
		t.Errorf("progress lifecycle wrong: %v", progress.calls)
	}

	types := make([]string, len(sink.events))
	for i, e := range sink.events {
		types[i] = e.Type
	}
	wantTypes := []string{"run_start", "step_start", "step_end", "step_start", "step_end", "step_start", "step_end", "run_end"}
	if len(types) != len(wantTypes) {
		t.Fatalf("unexpected events %v", types)
	}
	for i := range wantTypes {
		if types[i] != wantTypes[i] {
			t.Errorf("event %d: expected %s, got %s", i, wantTypes[i], types[i])
		}
	}
	failedEnd := sink.events[6]
	if failedEnd.ExitCode == nil || *failedEnd.ExitCode != 1 || failedEnd.Error == "" {
		t.Errorf("failed step event incomplete: %+v", failedEnd)
	}
	runEnd := sink.events[7]
	if runEnd.Passed != 2 || runEnd.Failed != 1 {
		t.Errorf("run_end totals wrong: %+v", runEnd)
	}
}

// stubExecutor returns canned results and can cancel the run mid-way.
type stubExecutor struct {
	calls    int
	cancelAt int
	cancel   context.CancelFunc
}

func (s *stubExecutor) Execute(ctx context.Context, step plan.Step, total int) executor.Outcome {
	s.calls++
	if s.cancel != nil && step.Index == s.cancelAt {
		s.cancel()
	}
	return executor.Outcome{Result: usage.StepResult{
		StepIndex:  step.Index,
		StepTitle:  step.Title,
		Tokens:     usage.TokenUsage{InputTokens: 1_000_000},
		DurationMs: 1000,
		Success:    true,
	}}
}

type fixedScores map[int]int

func (f fixedScores) Score(i int) *int {
	if s, ok := f[i]; ok {
		return &s
	}
	return nil
}

func testAgent() *agents.Resolved {
	return &agents.Resolved{Name: "fake", Model: "sonnet", Config: &agents.Config{Name: "fake"}}
}

func TestRun_AllPass(t *testing.T) {
	p := threeStepPlan(t)
	exec := &stubExecutor{}
	r := New(p, testAgent(), exec, WithScorer(fixedScores{0: 90, 1: 75, 2: 50}))

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != session.StatusComplete {
		t.Errorf("expected complete, got %s", result.Status)
	}
	want := []panel.Status{panel.StatusStrong, panel.StatusFair, panel.StatusWeak}
	for i, s := range want {
		if result.Statuses[i] != s {
			t.Errorf("step %d: expected %s, got %s", i, s, result.Statuses[i])
		}
	}
	if result.Duration != 3*time.Second {
		t.Errorf("duration should be the sum of steps, got %s", result.Duration)
	}
	if got := result.Cost; got < 8.99 || got > 9.01 {
		t.Errorf("expected cost 9.00, got %f", got)
	}
}

func TestRun_Interrupted(t *testing.T) {
	p := threeStepPlan(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := &stubExecutor{cancelAt: 1, cancel: cancel}
	progress := newRecordingProgress()
	r := New(p, testAgent(), exec, WithProgress(progress))

	result, err := r.Run(ctx)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if exec.calls != 2 || len(result.Results) != 2 {
		t.Errorf("expected 2 executed steps, got %d calls %d results", exec.calls, len(result.Results))
	}
	if !result.Interrupted || result.Status != session.StatusInterrupted {
		t.Errorf("expected interrupted, got %+v", result)
	}
	if result.Statuses[2] != panel.StatusPending {
		t.Errorf("unexecuted step should stay pending, got %s", result.Statuses[2])
	}
	if progress.calls[len(progress.calls)-1] != "stop" {
		t.Error("progress must be stopped on interruption")
	}
	if !result.Summary(false).Interrupted {
		t.Error("summary should carry the interruption")
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &stubExecutor{}
	result, err := New(threeStepPlan(t), testAgent(), exec).Run(ctx)
	if err == nil || exec.calls != 0 || len(result.Results) != 0 {
		t.Errorf("no step should run: err=%v calls=%d", err, exec.calls)
	}
}

func TestReportPath(t *testing.T) {
	workDir := t.TempDir()
	p := threeStepPlan(t)
	r := New(p, testAgent(), &stubExecutor{}, WithWorkDir(workDir))

	if got, want := r.ReportPath(), filepath.Join("reports", "health_audit.txt"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if r.ReportExists() {
		t.Error("report should not exist yet")
	}

	os.MkdirAll(filepath.Join(workDir, "reports"), 0755)
	os.WriteFile(filepath.Join(workDir, r.ReportPath()), []byte("report"), 0644)
	if !r.ReportExists() {
		t.Error("report should be found relative to the work dir")
	}

	p.Meta.Report = "md"
	r = New(p, testAgent(), &stubExecutor{}, WithReportsDir("out"))
	if got, want := r.ReportPath(), filepath.Join("out", "health_audit.md"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
