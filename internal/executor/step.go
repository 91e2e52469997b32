// Package executor runs one audit step through an external agent binary.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vinayprograms/codeaudit/internal/agents"
	"github.com/vinayprograms/codeaudit/internal/logging"
	"github.com/vinayprograms/codeaudit/internal/plan"
	"github.com/vinayprograms/codeaudit/internal/usage"
)

// DefaultTimeout bounds a single agent invocation.
const DefaultTimeout = 600 * time.Second

// DefaultStripEnv lists variables that make a nested agent believe it is
// running inside another agent session.
var DefaultStripEnv = []string{"CLAUDECODE", "CLAUDE_CODE"}

// ContextSource supplies the prior-step context block for a step.
type ContextSource interface {
	PriorContext(current int) string
}

// Outcome is a step result plus diagnostics. Err explains a failure; it is
// informational and never means the run should stop.
type Outcome struct {
	Result   usage.StepResult
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// Executor invokes a resolved agent for individual steps.
type Executor struct {
	agent    *agents.Resolved
	workDir  string
	timeout  time.Duration
	stripEnv []string
	context  ContextSource
	logger   *logging.Logger
	environ  func() []string
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout sets the per-step wall-clock limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithStripEnv replaces the list of variables removed from the child environment.
func WithStripEnv(names []string) Option {
	return func(e *Executor) { e.stripEnv = names }
}

// WithContextSource sets where prior-step context comes from.
func WithContextSource(src ContextSource) Option {
	return func(e *Executor) { e.context = src }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) { e.logger = l.WithComponent("executor") }
}

// WithEnviron overrides the ambient environment the child inherits.
func WithEnviron(fn func() []string) Option {
	return func(e *Executor) { e.environ = fn }
}

// New creates an executor for agent running in workDir.
func New(agent *agents.Resolved, workDir string, opts ...Option) *Executor {
	e := &Executor{
		agent:    agent,
		workDir:  workDir,
		timeout:  DefaultTimeout,
		stripEnv: DefaultStripEnv,
		logger:   logging.Nop(),
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildPrompt assembles the prompt for step: a preamble, the rule file
// content, and for later steps the prior-step context.
func (e *Executor) BuildPrompt(step plan.Step, total int) (string, error) {
	rule, err := os.ReadFile(step.Filepath)
	if err != nil {
		return "", fmt.Errorf("read rule %s: %w", step.Filename, err)
	}
	var prior string
	if step.Index > 0 && e.context != nil {
		prior = e.context.PriorContext(step.Index)
	}
	return strings.Join([]string{
		fmt.Sprintf("You are executing step %d of %d in a project audit.", step.Index+1, total),
		"Working directory: " + e.workDir,
		"",
		"IMPORTANT: Be concise and efficient. Minimize tool calls. Do not read files already provided in context below.",
		"",
		"Read and follow the instructions below exactly:",
		"",
		string(rule),
		prior,
	}, "\n"), nil
}

// Execute runs step to completion. It never returns an error: spawn
// failures, non-zero exits and timeouts all produce Success=false.
func (e *Executor) Execute(ctx context.Context, step plan.Step, total int) Outcome {
	ctx, span := e.startStepSpan(ctx, step)
	start := time.Now()

	out := e.run(ctx, step, total)
	out.Result = usage.StepResult{
		StepIndex:  step.Index,
		StepTitle:  step.Title,
		Tokens:     e.parseTokens(out.Stdout),
		DurationMs: time.Since(start).Milliseconds(),
		Success:    out.Err == nil,
	}

	if out.Err != nil {
		e.logger.Warn("step_error", map[string]interface{}{
			"step":      step.Index,
			"exit_code": out.ExitCode,
			"error":     out.Err.Error(),
			"stderr":    truncate(out.Stderr, 500),
		})
	}
	e.endStepSpan(span, out)
	return out
}

func (e *Executor) run(ctx context.Context, step plan.Step, total int) Outcome {
	prompt, err := e.BuildPrompt(step, total)
	if err != nil {
		return Outcome{ExitCode: -1, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cfg := e.agent.Config
	cmd := exec.CommandContext(ctx, e.agent.Binary, cfg.BuildArgs(e.agent.Model, prompt)...)
	cmd.Dir = e.workDir
	cmd.Env = filterEnv(e.environ(), e.stripEnv...)
	cmd.WaitDelay = 5 * time.Second
	if cfg.PromptVia == agents.PromptStdin {
		cmd.Stdin = strings.NewReader(prompt)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("spawn", map[string]interface{}{
		"binary":     e.agent.Binary,
		"model":      e.agent.Model,
		"prompt_via": string(cfg.PromptVia),
		"prompt_len": len(prompt),
	})

	err = cmd.Run()
	out := Outcome{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	} else {
		out.ExitCode = -1
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Err = fmt.Errorf("timed out after %s", e.timeout)
	case ctx.Err() != nil:
		out.Err = ctx.Err()
	case err != nil:
		out.Err = err
	}
	return out
}

func (e *Executor) parseTokens(stdout string) usage.TokenUsage {
	if e.agent.Config.ParseTokens == nil {
		return usage.TokenUsage{}
	}
	return e.agent.Config.ParseTokens(stdout)
}

// filterEnv returns a copy of environ with the named variables removed.
func filterEnv(environ []string, names ...string) []string {
	out := make([]string, 0, len(environ))
outer:
	for _, kv := range environ {
		for _, name := range names {
			if strings.HasPrefix(kv, name+"=") {
				continue outer
			}
		}
		out = append(out, kv)
	}
	return out
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
