package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/vinayprograms/codeaudit/internal/config"
	"github.com/vinayprograms/codeaudit/internal/replay"
	"github.com/vinayprograms/codeaudit/internal/session"
)

// Run replays a session from a JSONL file.
func (c *ReplayCmd) Run(env *runEnv) error {
	cfg, workDir, err := loadConfig(c.Config, c.Dir)
	if err != nil {
		return err
	}

	path := c.Session
	if path == "" {
		path, err = latestSession(config.Resolve(workDir, cfg.Storage.SessionsDir))
		if err != nil {
			return err
		}
	}

	r := replay.New(env.stdout, c.Verbose, replay.WithPricing(cfg.PricingTable()))
	if c.Follow {
		if !isTerminal(stdoutFile(env)) {
			return errors.New("--follow needs a terminal")
		}
		return r.ReplayFileLive(path)
	}
	return r.ReplayFile(path)
}

// latestSession returns the most recently written session in dir.
func latestSession(dir string) (string, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("no sessions in %s", dir)
	}
	store, err := session.NewFileStore(dir)
	if err != nil {
		return "", err
	}
	paths, err := store.List()
	if err != nil {
		return "", fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no sessions in %s", dir)
	}
	return paths[0], nil
}
