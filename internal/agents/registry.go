// Package agents describes the external agent CLIs an audit can drive.
package agents

import (
	"github.com/vinayprograms/codeaudit/internal/usage"
)

// PromptVia says how a backend receives its prompt.
type PromptVia string

const (
	// PromptStdin pipes the prompt to the child's standard input.
	PromptStdin PromptVia = "stdin"
	// PromptArg embeds the prompt in the argument list built by BuildArgs.
	PromptArg PromptVia = "arg"
)

// Config describes one agent backend.
type Config struct {
	Name        string
	DisplayName string
	Binaries    []string // candidate executables, in preference order
	Models      []string
	PromptVia   PromptVia

	// BuildArgs returns the argument list for one invocation.
	BuildArgs func(model, prompt string) []string

	// ParseTokens extracts token usage from stdout. Nil when the backend
	// emits no usable telemetry.
	ParseTokens func(stdout string) usage.TokenUsage
}

// HasModel reports whether model is one of the backend's models.
func (c *Config) HasModel(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Registry is an ordered set of backends.
type Registry struct {
	agents []*Config
}

// NewRegistry builds a registry from configs, keeping their order.
func NewRegistry(configs ...*Config) *Registry {
	return &Registry{agents: configs}
}

// Default returns the built-in backends.
func Default() *Registry {
	return NewRegistry(builtin()...)
}

// All returns the backends in registry order.
func (r *Registry) All() []*Config {
	out := make([]*Config, len(r.agents))
	copy(out, r.agents)
	return out
}

// Get finds a backend by name.
func (r *Registry) Get(name string) (*Config, bool) {
	for _, a := range r.agents {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// ByBinary finds the backend that lists binary among its candidates.
func (r *Registry) ByBinary(binary string) (*Config, bool) {
	for _, a := range r.agents {
		for _, b := range a.Binaries {
			if b == binary {
				return a, true
			}
		}
	}
	return nil, false
}

// Names returns backend names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.agents))
	for i, a := range r.agents {
		names[i] = a.Name
	}
	return names
}

// ExtendModels appends extra accepted models to the named backends.
// Unknown names are ignored.
func (r *Registry) ExtendModels(extra map[string][]string) {
	for name, models := range extra {
		a, ok := r.Get(name)
		if !ok {
			continue
		}
		for _, m := range models {
			if !a.HasModel(m) {
				a.Models = append(a.Models, m)
			}
		}
	}
}

func builtin() []*Config {
	return []*Config{
		{
			Name:        "claude",
			DisplayName: "Claude Code",
			Binaries:    []string{"claude"},
			Models:      []string{"sonnet", "opus", "haiku"},
			PromptVia:   PromptStdin,
			BuildArgs: func(model, _ string) []string {
				return []string{
					"-p",
					"--allowedTools", "Read,Bash,Glob,Grep,Write",
					"--output-format", "json",
					"--model", model,
					"--max-turns", "25",
				}
			},
			ParseTokens: ParseJSONUsage,
		},
		{
			Name:        "cursor",
			DisplayName: "Cursor",
			Binaries:    []string{"cursor-agent", "cursor"},
			Models:      []string{"sonnet", "gpt-4o", "gemini-pro"},
			PromptVia:   PromptStdin,
			BuildArgs: func(_, _ string) []string {
				return []string{"--print", "--output-format", "json"}
			},
		},
		{
			Name:        "gemini",
			DisplayName: "Gemini CLI",
			Binaries:    []string{"gemini"},
			Models:      []string{"gemini-2.5-pro", "gemini-2.5-flash"},
			PromptVia:   PromptStdin,
			BuildArgs: func(_, _ string) []string {
				return []string{"-p", "--yolo", "-o", "json"}
			},
		},
		{
			Name:        "codex",
			DisplayName: "OpenAI Codex",
			Binaries:    []string{"codex"},
			Models:      []string{"gpt-5.2-codex", "gpt-5-codex", "o3", "o4-mini"},
			PromptVia:   PromptArg,
			BuildArgs: func(model, prompt string) []string {
				return []string{"exec", prompt, "--json", "--full-auto", "-m", model}
			},
		},
		{
			Name:        "cline",
			DisplayName: "Cline",
			Binaries:    []string{"cline"},
			Models:      []string{"claude-sonnet-4-5-20250929", "gpt-4o", "gemini-2.5-pro"},
			PromptVia:   PromptStdin,
			BuildArgs: func(model, _ string) []string {
				return []string{"-y", "--json", "-m", model, "--timeout", "600"}
			},
		},
		{
			Name:        "goose",
			DisplayName: "Goose",
			Binaries:    []string{"goose"},
			Models:      []string{"claude-sonnet-4-5", "gpt-4o", "gemini-2.5-pro"},
			PromptVia:   PromptArg,
			BuildArgs: func(model, prompt string) []string {
				return []string{
					"run", "-t", prompt, "--output-format", "json", "--quiet",
					"--no-session", "--model", model, "--max-turns", "25",
				}
			},
		},
		{
			Name:        "aider",
			DisplayName: "Aider",
			Binaries:    []string{"aider"},
			Models:      []string{"claude-sonnet-4-5", "gpt-4o", "deepseek/deepseek-chat"},
			PromptVia:   PromptArg,
			BuildArgs: func(model, prompt string) []string {
				return []string{"--message", prompt, "--model", model, "--yes", "--no-git"}
			},
		},
		{
			Name:        "copilot",
			DisplayName: "GitHub Copilot",
			Binaries:    []string{"copilot"},
			Models:      []string{"claude-sonnet-4", "gpt-5"},
			PromptVia:   PromptArg,
			BuildArgs: func(model, prompt string) []string {
				return []string{"--prompt", prompt, "--allow-all-tools", "--model", model}
			},
		},
		{
			Name:        "qwen",
			DisplayName: "Qwen Code",
			Binaries:    []string{"qwen"},
			Models:      []string{"qwen3-coder", "qwen3-coder-next"},
			PromptVia:   PromptStdin,
			BuildArgs: func(model, _ string) []string {
				return []string{"-p", "--yolo", "-o", "json", "--model", model}
			},
		},
	}
}
