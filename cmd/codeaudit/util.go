package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/vinayprograms/codeaudit/internal/config"
	"github.com/vinayprograms/codeaudit/internal/logging"
	"github.com/vinayprograms/codeaudit/internal/plan"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// loadConfig resolves the project directory and loads its configuration.
func loadConfig(explicit, dir string) (*config.Config, string, error) {
	workDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("invalid directory %q: %w", dir, err)
	}
	info, err := os.Stat(workDir)
	if err != nil || !info.IsDir() {
		return nil, "", fmt.Errorf("not a directory: %s", workDir)
	}
	cfg, _, err := config.Load(explicit, workDir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, workDir, nil
}

// rulesCandidates lists rules locations in priority order: flag or
// environment, config, then locations next to the executable.
func rulesCandidates(flag string, cfg *config.Config, workDir string) []string {
	candidates := []string{flag, config.Resolve(workDir, cfg.Run.RulesDir)}
	return append(candidates, plan.DefaultRulesCandidates()...)
}

func findRulesDir(flag string, cfg *config.Config, workDir string) (string, error) {
	return plan.FindRulesDir(rulesCandidates(flag, cfg, workDir)...)
}

// newLogger builds the process logger. Level comes from config unless
// verbose forces debug.
func newLogger(cfg *config.Config, verbose bool, out io.Writer) (*logging.Logger, error) {
	logger := logging.New()
	logger.SetOutput(out)
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = logging.LevelDebug
	}
	logger.SetLevel(level)
	return logger, nil
}

// openLogFile opens path for appending, creating parent directories.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
