package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/codeaudit/internal/agents"
	"github.com/vinayprograms/codeaudit/internal/artifacts"
	"github.com/vinayprograms/codeaudit/internal/config"
	"github.com/vinayprograms/codeaudit/internal/events"
	"github.com/vinayprograms/codeaudit/internal/executor"
	"github.com/vinayprograms/codeaudit/internal/panel"
	"github.com/vinayprograms/codeaudit/internal/plan"
	"github.com/vinayprograms/codeaudit/internal/runner"
	"github.com/vinayprograms/codeaudit/internal/session"
	"github.com/vinayprograms/codeaudit/internal/telemetry"
	"github.com/vinayprograms/codeaudit/internal/tui"
)

// errInterrupted is returned after a cancelled run has printed its summary.
var errInterrupted = errors.New("audit interrupted")

var hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

// Run executes the audit.
func (c *RunCmd) Run(env *runEnv) error {
	cfg, workDir, err := loadConfig(c.Config, c.Dir)
	if err != nil {
		return err
	}

	rulesDir, err := findRulesDir(c.Rules, cfg, workDir)
	if err != nil {
		return err
	}
	p, err := loadPlan(rulesDir, c.Audit)
	if err != nil {
		return err
	}

	interactive := !c.Plain && isTerminal(env.stdin) && isTerminal(stdoutFile(env))
	agent, err := resolveAgent(cfg, c.Agent, c.Model, interactive)
	if err != nil {
		return err
	}

	tp, err := telemetry.Setup(env.ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        cfg.Telemetry.Headers,
		ServiceVersion: version,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	sess := session.New(p.Meta.Name, agent.Name, agent.Model, workDir, p.Titles())
	var store *session.FileStore
	if cfg.Storage.Record && !c.NoRecord {
		store, err = session.NewFileStore(config.Resolve(workDir, cfg.Storage.SessionsDir))
		if err != nil {
			return fmt.Errorf("failed to create session store: %w", err)
		}
	}

	logOut, closeLog, err := c.logOutput(cfg, workDir, interactive, store, sess.ID, env.stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger, err := newLogger(cfg, c.Verbose, logOut)
	if err != nil {
		return err
	}

	recorderOpts := []events.RecorderOption{events.WithLogger(logger)}
	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL,
			events.WithSubject(cfg.Events.Subject),
			events.WithPublisherLogger(logger),
		)
		if err != nil {
			logger.Warn("nats_connect_failed", map[string]interface{}{
				"url":   cfg.Events.NATSURL,
				"error": err.Error(),
			})
		} else {
			recorderOpts = append(recorderOpts, events.WithForward(pub))
		}
	}
	recorder := events.NewRecorder(sess, store, recorderOpts...)
	defer recorder.Close()

	collector := artifacts.New(config.Resolve(workDir, cfg.Run.ArtifactsDir), p.Meta.ArtifactPrefix)

	timeout := cfg.Run.Timeout.Duration
	if c.Timeout > 0 {
		timeout = c.Timeout
	}
	exec := executor.New(agent, workDir,
		executor.WithTimeout(timeout),
		executor.WithStripEnv(cfg.Run.StripEnv),
		executor.WithContextSource(collector),
		executor.WithLogger(logger),
	)

	var progress runner.Progress
	if interactive {
		progress = panel.New(p.Meta.Name, p.Titles(), panel.WithOutput(env.stdout))
	} else {
		progress = panel.NewPlain(env.stdout, p.Meta.Name, p.Titles())
	}

	r := runner.New(p, agent, exec,
		runner.WithProgress(progress),
		runner.WithScorer(collector),
		runner.WithSink(recorder),
		runner.WithPricing(cfg.PricingTable()),
		runner.WithLogger(logger),
		runner.WithWorkDir(workDir),
		runner.WithReportsDir(cfg.Run.ReportsDir),
	)

	result, runErr := r.Run(env.ctx)
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	recorder.Finish(result.Status, errMsg)

	panel.PrintSummary(env.stdout, result.Summary(r.ReportExists()))
	if store != nil {
		fmt.Fprintln(env.stdout, hintStyle.Render("Session: "+store.Path(sess.ID)))
	}

	if runErr != nil {
		return errInterrupted
	}
	return nil
}

// logOutput picks where log lines go. The live panel owns the terminal, so
// without an explicit file the log lands next to the session log.
func (c *RunCmd) logOutput(cfg *config.Config, workDir string, interactive bool, store *session.FileStore, id string, stderr io.Writer) (io.Writer, func(), error) {
	path := c.LogFile
	if path == "" {
		path = config.Resolve(workDir, cfg.Logging.File)
	}
	if path == "" && interactive {
		if store == nil {
			return io.Discard, func() {}, nil
		}
		path = filepath.Join(store.Dir(), id+".log")
	}
	if path == "" {
		return stderr, func() {}, nil
	}
	f, err := openLogFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// loadPlan loads the plan for an audit type with a friendlier error when the
// audit does not exist.
func loadPlan(rulesDir, auditType string) (*plan.Plan, error) {
	p, err := plan.LoadFile(plan.PlanPath(rulesDir, auditType))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unknown audit %q in %s (see 'codeaudit list')", auditType, rulesDir)
	}
	return p, err
}

// resolveAgent detects installed backends and picks one with a model.
func resolveAgent(cfg *config.Config, agent, model string, interactive bool) (*agents.Resolved, error) {
	reg := agents.Default()
	reg.ExtendModels(cfg.ExtraModels())

	req := agents.Request{
		Agent:        agent,
		Model:        model,
		DefaultAgent: cfg.Agent.Name,
		DefaultModel: cfg.Agent.Model,
	}
	if interactive {
		req.Chooser = tui.NewChooser()
	}
	resolved, err := agents.Resolve(reg.Detect(nil), req)
	if err != nil {
		if errors.Is(err, agents.ErrNoAgents) {
			return nil, fmt.Errorf("%w (supported: %s)", err, strings.Join(reg.Names(), ", "))
		}
		return nil, err
	}
	return resolved, nil
}

// stdoutFile returns env's stdout when it is a file.
func stdoutFile(env *runEnv) *os.File {
	f, _ := env.stdout.(*os.File)
	return f
}
