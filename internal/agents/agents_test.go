package agents

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/vinayprograms/codeaudit/internal/usage"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	want := []string{"claude", "cursor", "gemini", "codex", "cline", "goose", "aider", "copilot", "qwen"}
	got := r.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for _, a := range r.All() {
		if a.BuildArgs == nil {
			t.Errorf("%s: missing BuildArgs", a.Name)
		}
		if len(a.Binaries) == 0 || len(a.Models) == 0 {
			t.Errorf("%s: missing binaries or models", a.Name)
		}
		if a.PromptVia != PromptStdin && a.PromptVia != PromptArg {
			t.Errorf("%s: bad prompt mode %q", a.Name, a.PromptVia)
		}
	}
}

func TestBuildArgs_PromptPlacement(t *testing.T) {
	r := Default()
	for _, a := range r.All() {
		args := a.BuildArgs("m", "PROMPT-TEXT")
		contains := false
		for _, arg := range args {
			if arg == "PROMPT-TEXT" {
				contains = true
			}
		}
		if a.PromptVia == PromptArg && !contains {
			t.Errorf("%s: arg-mode backend must embed the prompt: %v", a.Name, args)
		}
		if a.PromptVia == PromptStdin && contains {
			t.Errorf("%s: stdin-mode backend must not embed the prompt: %v", a.Name, args)
		}
	}
}

func TestBuildArgs_Claude(t *testing.T) {
	a, ok := Default().Get("claude")
	if !ok {
		t.Fatal("claude not registered")
	}
	got := strings.Join(a.BuildArgs("opus", "ignored"), " ")
	want := "-p --allowedTools Read,Bash,Glob,Grep,Write --output-format json --model opus --max-turns 25"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if a.ParseTokens == nil {
		t.Error("claude should parse telemetry")
	}
}

func TestByBinary(t *testing.T) {
	a, ok := Default().ByBinary("cursor-agent")
	if !ok || a.Name != "cursor" {
		t.Errorf("expected cursor, got %v", a)
	}
	if _, ok := Default().ByBinary("vim"); ok {
		t.Error("vim is not an agent")
	}
}

func TestExtendModels(t *testing.T) {
	r := Default()
	r.ExtendModels(map[string][]string{
		"claude":  {"claude-opus-4", "sonnet"},
		"missing": {"x"},
	})
	a, _ := r.Get("claude")
	if !a.HasModel("claude-opus-4") {
		t.Error("extra model not added")
	}
	n := 0
	for _, m := range a.Models {
		if m == "sonnet" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("duplicate model added: %v", a.Models)
	}

	fresh, _ := Default().Get("claude")
	if fresh.HasModel("claude-opus-4") {
		t.Error("extension leaked into a new registry")
	}
}

func TestParseJSONUsage(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   usage.TokenUsage
	}{
		{
			name:   "last usage line",
			stdout: "progress...\n{\"type\":\"result\",\"usage\":{\"input_tokens\":100,\"output_tokens\":50,\"cache_read_input_tokens\":10,\"cache_creation_input_tokens\":5}}\n",
			want:   usage.TokenUsage{InputTokens: 100, OutputTokens: 50, CacheReadTokens: 10, CacheWriteTokens: 5},
		},
		{
			name:   "missing subfields default to zero",
			stdout: `{"usage":{"output_tokens":7}}`,
			want:   usage.TokenUsage{OutputTokens: 7},
		},
		{
			name:   "skips trailing object without usage",
			stdout: "{\"usage\":{\"input_tokens\":3}}\n{\"type\":\"done\"}\ntrailing text",
			want:   usage.TokenUsage{InputTokens: 3},
		},
		{
			name:   "prefers the later usage line",
			stdout: "{\"usage\":{\"input_tokens\":1}}\n{\"usage\":{\"input_tokens\":2}}",
			want:   usage.TokenUsage{InputTokens: 2},
		},
		{
			name:   "malformed json",
			stdout: "{\"usage\": {",
			want:   usage.TokenUsage{},
		},
		{
			name:   "truncated trailing line is skipped",
			stdout: "{\"usage\":{\"input_tokens\":10,\"output_tokens\":4}}\n{truncated",
			want:   usage.TokenUsage{InputTokens: 10, OutputTokens: 4},
		},
		{
			name:   "plain text",
			stdout: "all done, no telemetry",
			want:   usage.TokenUsage{},
		},
		{
			name:   "empty",
			stdout: "",
			want:   usage.TokenUsage{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseJSONUsage(tt.stdout); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func fakeLookPath(present ...string) LookPathFunc {
	return func(file string) (string, error) {
		for _, p := range present {
			if p == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestDetect(t *testing.T) {
	found := Default().Detect(fakeLookPath("qwen", "cursor", "cursor-agent", "claude"))
	var names []string
	for _, d := range found {
		names = append(names, d.Config.Name)
	}
	if strings.Join(names, ",") != "claude,cursor,qwen" {
		t.Fatalf("expected registry order without duplicates, got %v", names)
	}
	if found[1].Binary != "cursor-agent" {
		t.Errorf("expected first candidate binary, got %s", found[1].Binary)
	}
	if found[0].Path != "/usr/bin/claude" {
		t.Errorf("unexpected path %s", found[0].Path)
	}
}

func TestDetect_None(t *testing.T) {
	if found := Default().Detect(fakeLookPath()); len(found) != 0 {
		t.Errorf("expected nothing, got %v", found)
	}
}

type stubChooser struct {
	picks  []int
	titles []string
}

func (s *stubChooser) Choose(title string, options []string) (int, error) {
	s.titles = append(s.titles, title)
	pick := s.picks[0]
	s.picks = s.picks[1:]
	return pick, nil
}

func TestResolve_NoAgents(t *testing.T) {
	if _, err := Resolve(nil, Request{}); !errors.Is(err, ErrNoAgents) {
		t.Errorf("expected ErrNoAgents, got %v", err)
	}
}

func TestResolve_ExplicitAgent(t *testing.T) {
	detected := Default().Detect(fakeLookPath("claude", "gemini"))

	res, err := Resolve(detected, Request{Agent: "gemini", Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Name != "gemini" || res.Model != "gemini-2.5-flash" || res.Binary != "/usr/bin/gemini" {
		t.Errorf("unexpected resolution %+v", res)
	}

	_, err = Resolve(detected, Request{Agent: "aider"})
	if !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestResolve_UnknownModel(t *testing.T) {
	detected := Default().Detect(fakeLookPath("claude"))
	_, err := Resolve(detected, Request{Model: "gpt-4o"})
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

func TestResolve_SingleAgentAutoSelected(t *testing.T) {
	detected := Default().Detect(fakeLookPath("codex"))
	chooser := &stubChooser{picks: []int{2}}
	res, err := Resolve(detected, Request{Chooser: chooser})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Name != "codex" || res.Model != "o3" {
		t.Errorf("unexpected resolution %+v", res)
	}
	if len(chooser.titles) != 1 || chooser.titles[0] != "Select model" {
		t.Errorf("only the model should be prompted, got %v", chooser.titles)
	}
}

func TestResolve_ChooserPicksAgent(t *testing.T) {
	detected := Default().Detect(fakeLookPath("claude", "gemini"))
	res, err := Resolve(detected, Request{Chooser: &stubChooser{picks: []int{1, 0}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Name != "gemini" || res.Model != "gemini-2.5-pro" {
		t.Errorf("unexpected resolution %+v", res)
	}
}

func TestResolve_NonInteractiveDefaults(t *testing.T) {
	detected := Default().Detect(fakeLookPath("claude", "gemini"))

	res, err := Resolve(detected, Request{DefaultAgent: "gemini", DefaultModel: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Name != "gemini" || res.Model != "gemini-2.5-flash" {
		t.Errorf("config defaults not applied: %+v", res)
	}

	res, err = Resolve(detected, Request{DefaultAgent: "copilot", DefaultModel: "nope"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Name != "claude" || res.Model != "sonnet" {
		t.Errorf("expected first detected and first model, got %+v", res)
	}
}
