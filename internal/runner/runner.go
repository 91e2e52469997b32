// Package runner sequences an audit: execute each step, read its score,
// derive its status and push the result to progress, usage and events.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vinayprograms/codeaudit/internal/agents"
	"github.com/vinayprograms/codeaudit/internal/events"
	"github.com/vinayprograms/codeaudit/internal/executor"
	"github.com/vinayprograms/codeaudit/internal/logging"
	"github.com/vinayprograms/codeaudit/internal/panel"
	"github.com/vinayprograms/codeaudit/internal/plan"
	"github.com/vinayprograms/codeaudit/internal/session"
	"github.com/vinayprograms/codeaudit/internal/usage"
)

// DefaultReportsDir is where the final report of an audit is expected.
const DefaultReportsDir = "reports"

// Progress mirrors step state for display.
type Progress interface {
	Start()
	Stop()
	SetRunning(index int)
	Complete(index int, status panel.Status, d time.Duration, score *int)
	SetStats(tokens int, cost float64)
}

// StepExecutor runs one step to completion.
type StepExecutor interface {
	Execute(ctx context.Context, step plan.Step, total int) executor.Outcome
}

// Scorer looks up the score a step's artifacts report.
type Scorer interface {
	Score(index int) *int
}

// Result is the outcome of a run.
type Result struct {
	Status      string // session.Status*
	Results     []usage.StepResult
	Statuses    []panel.Status
	Tokens      usage.TokenUsage
	Cost        float64
	Duration    time.Duration
	ReportPath  string
	Interrupted bool
}

// Summary converts the result to the end-of-run card.
func (r *Result) Summary(reportExists bool) panel.Summary {
	s := panel.Summary{
		Duration:     r.Duration,
		Tokens:       r.Tokens.Exchanged(),
		Cost:         r.Cost,
		ReportPath:   r.ReportPath,
		ReportExists: reportExists,
		Interrupted:  r.Interrupted,
	}
	for _, res := range r.Results {
		if res.Success {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// Runner executes every step of a plan in order.
type Runner struct {
	plan       *plan.Plan
	agent      *agents.Resolved
	exec       StepExecutor
	scorer     Scorer
	progress   Progress
	sink       events.Sink
	pricing    usage.Pricing
	logger     *logging.Logger
	workDir    string
	reportsDir string
}

// Option configures a Runner.
type Option func(*Runner)

// WithProgress sets the progress display.
func WithProgress(p Progress) Option {
	return func(r *Runner) { r.progress = p }
}

// WithScorer sets the score source. Without one every successful step is
// unscored.
func WithScorer(s Scorer) Option {
	return func(r *Runner) { r.scorer = s }
}

// WithSink sets where run events go.
func WithSink(s events.Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithPricing sets the rate table for cost estimates.
func WithPricing(p usage.Pricing) Option {
	return func(r *Runner) { r.pricing = p }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.logger = l.WithComponent("runner") }
}

// WithWorkDir sets the audited project root, used to locate the report.
func WithWorkDir(dir string) Option {
	return func(r *Runner) { r.workDir = dir }
}

// WithReportsDir sets the report directory relative to the work dir.
func WithReportsDir(dir string) Option {
	return func(r *Runner) {
		if dir != "" {
			r.reportsDir = dir
		}
	}
}

// New creates a runner for p using agent through exec.
func New(p *plan.Plan, agent *agents.Resolved, exec StepExecutor, opts ...Option) *Runner {
	r := &Runner{
		plan:       p,
		agent:      agent,
		exec:       exec,
		progress:   nopProgress{},
		sink:       events.Discard{},
		logger:     logging.Nop(),
		reportsDir: DefaultReportsDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReportPath is the expected final report: <reports>/<audit>_audit.<ext>.
func (r *Runner) ReportPath() string {
	return filepath.Join(r.reportsDir, fmt.Sprintf("%s_audit.%s", r.plan.Meta.Name, r.plan.Meta.Report))
}

// ReportExists reports whether the final report is on disk.
func (r *Runner) ReportExists() bool {
	path := r.ReportPath()
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.workDir, path)
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Run executes all steps. Step failures never stop the loop. A cancelled
// context stops it between steps; the partial result is returned together
// with the context error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	steps := r.plan.Steps
	total := len(steps)
	auditType := r.plan.Meta.Name
	tracker := usage.NewTracker(r.pricing)
	statuses := make([]panel.Status, total)
	for i := range statuses {
		statuses[i] = panel.StatusPending
	}

	ctx, span := startRunSpan(ctx, auditType, r.agent, total)
	r.logger.RunStart(auditType, r.agent.Name, r.agent.Model, total)
	r.sink.Emit(session.Event{
		Type:       session.EventRunStart,
		Agent:      r.agent.Name,
		Model:      r.agent.Model,
		TotalSteps: total,
	})

	r.progress.Start()
	defer r.progress.Stop()

	interrupted := false
	for _, step := range steps {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		statuses[step.Index] = r.runStep(ctx, step, total, tracker)
		if ctx.Err() != nil {
			interrupted = true
			break
		}
	}

	result := &Result{
		Results:     tracker.Results(),
		Statuses:    statuses,
		Tokens:      tracker.TotalTokens(),
		Cost:        tracker.EstimateCost(r.agent.Model),
		Duration:    time.Duration(tracker.TotalDurationMs()) * time.Millisecond,
		ReportPath:  r.ReportPath(),
		Interrupted: interrupted,
	}
	passed, failed := tracker.SuccessCount(), tracker.FailureCount()
	switch {
	case interrupted:
		result.Status = session.StatusInterrupted
	case failed > 0:
		result.Status = session.StatusFailed
	default:
		result.Status = session.StatusComplete
	}

	tokens := result.Tokens
	r.sink.Emit(session.Event{
		Type:       session.EventRunEnd,
		Status:     result.Status,
		Passed:     passed,
		Failed:     failed,
		DurationMs: tracker.TotalDurationMs(),
		Tokens:     &tokens,
		Cost:       result.Cost,
	})
	r.logger.RunComplete(auditType, passed, failed, result.Duration)
	endRunSpan(span, result)

	if interrupted {
		return result, ctx.Err()
	}
	return result, nil
}

// runStep executes one step and publishes its outcome.
func (r *Runner) runStep(ctx context.Context, step plan.Step, total int, tracker *usage.Tracker) panel.Status {
	idx := step.Index
	r.progress.SetRunning(idx)
	r.logger.StepStart(idx, step.Title)
	r.sink.Emit(session.Event{Type: session.EventStepStart, StepIndex: &idx, StepTitle: step.Title})

	out := r.exec.Execute(ctx, step, total)
	res := out.Result

	var score *int
	if res.Success && r.scorer != nil {
		score = r.scorer.Score(idx)
	}
	status := panel.StatusFor(score, res.Success)

	r.progress.Complete(idx, status, res.Duration(), score)
	tracker.Add(res)
	r.progress.SetStats(tracker.TotalTokens().Billable(), tracker.EstimateCost(r.agent.Model))
	r.logger.StepComplete(idx, string(status), res.Duration(), res.Success)

	success := res.Success
	exitCode := out.ExitCode
	tokens := res.Tokens
	event := session.Event{
		Type:       session.EventStepEnd,
		StepIndex:  &idx,
		StepTitle:  step.Title,
		Success:    &success,
		Status:     string(status),
		Score:      score,
		ExitCode:   &exitCode,
		DurationMs: res.DurationMs,
		Tokens:     &tokens,
	}
	if out.Err != nil {
		event.Error = out.Err.Error()
	}
	r.sink.Emit(event)
	return status
}

type nopProgress struct{}

func (nopProgress) Start()                                          {}
func (nopProgress) Stop()                                           {}
func (nopProgress) SetRunning(int)                                  {}
func (nopProgress) Complete(int, panel.Status, time.Duration, *int) {}
func (nopProgress) SetStats(int, float64)                           {}
