// Package main defines the CLI structure using kong.
package main

import (
	"time"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Run     RunCmd     `cmd:"" help:"Run an audit against a project"`
	List    ListCmd    `cmd:"" help:"List available audits"`
	Doctor  DoctorCmd  `cmd:"" help:"Check that agents and rules are available"`
	Agents  AgentsCmd  `cmd:"" help:"Show supported agent backends"`
	Replay  ReplayCmd  `cmd:"" help:"Replay a recorded audit run"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// RunCmd executes an audit plan.
type RunCmd struct {
	Audit    string        `arg:"" help:"Audit type (a directory under the rules directory)"`
	Dir      string        `short:"C" default:"." help:"Project directory to audit"`
	Agent    string        `short:"a" help:"Agent backend (see 'codeaudit agents')"`
	Model    string        `short:"m" help:"Model for the agent"`
	Config   string        `help:"Config file path"`
	Rules    string        `env:"CODEAUDIT_RULES_DIR" help:"Rules directory"`
	Timeout  time.Duration `help:"Per-step timeout (overrides config)"`
	Plain    bool          `help:"Print one line per step instead of the live panel"`
	NoRecord bool          `help:"Do not write a session log"`
	Verbose  bool          `short:"v" help:"Debug logging"`
	LogFile  string        `help:"Log file path"`
}

// ListCmd lists audits found in the rules directory.
type ListCmd struct {
	Config string `help:"Config file path"`
	Rules  string `env:"CODEAUDIT_RULES_DIR" help:"Rules directory"`
}

// DoctorCmd checks the environment.
type DoctorCmd struct {
	Config string `help:"Config file path"`
	Rules  string `env:"CODEAUDIT_RULES_DIR" help:"Rules directory"`
}

// AgentsCmd prints the agent registry.
type AgentsCmd struct {
	Config string `help:"Config file path"`
}

// ReplayCmd replays a session log.
type ReplayCmd struct {
	Session string `arg:"" optional:"" help:"Session file (defaults to the latest run)"`
	Dir     string `short:"C" default:"." help:"Project directory holding the sessions"`
	Config  string `help:"Config file path"`
	Follow  bool   `short:"f" help:"Keep the view open and refresh as the run progresses"`
	Verbose int    `short:"v" type:"counter" help:"Verbosity level (-v shows step starts and token breakdown)"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
