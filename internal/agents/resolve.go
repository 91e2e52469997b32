package agents

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAgents means no registered backend was found on PATH.
	ErrNoAgents = errors.New("no supported agent found on PATH")
	// ErrUnknownAgent means the requested backend is not registered or not installed.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrUnknownModel means the requested model is not offered by the backend.
	ErrUnknownModel = errors.New("unknown model")
)

// Resolved is the backend and model chosen for a run.
type Resolved struct {
	Name   string
	Binary string // concrete executable path
	Model  string
	Config *Config
}

// Chooser asks the user to pick one option. It returns the chosen index.
type Chooser interface {
	Choose(title string, options []string) (int, error)
}

// Request carries the inputs to Resolve. Empty fields mean "not specified".
type Request struct {
	Agent        string // explicit --agent
	Model        string // explicit --model
	DefaultAgent string // from config
	DefaultModel string // from config

	// Chooser is consulted when the choice is ambiguous. Nil means
	// non-interactive: defaults apply, then the first candidate.
	Chooser Chooser
}

// Resolve picks a backend among detected ones and a model for it.
func Resolve(detected []Detected, req Request) (*Resolved, error) {
	if len(detected) == 0 {
		return nil, ErrNoAgents
	}

	d, err := pickAgent(detected, req)
	if err != nil {
		return nil, err
	}
	model, err := pickModel(d.Config, req)
	if err != nil {
		return nil, err
	}
	return &Resolved{Name: d.Config.Name, Binary: d.Path, Model: model, Config: d.Config}, nil
}

func pickAgent(detected []Detected, req Request) (Detected, error) {
	if req.Agent != "" {
		if d, ok := findDetected(detected, req.Agent); ok {
			return d, nil
		}
		return Detected{}, fmt.Errorf("%w %q (detected: %s)", ErrUnknownAgent, req.Agent, detectedNames(detected))
	}
	if len(detected) == 1 {
		return detected[0], nil
	}
	if req.Chooser != nil {
		options := make([]string, len(detected))
		for i, d := range detected {
			options[i] = fmt.Sprintf("%s (%s)", d.Config.DisplayName, d.Binary)
		}
		i, err := req.Chooser.Choose("Select agent", options)
		if err != nil {
			return Detected{}, fmt.Errorf("select agent: %w", err)
		}
		if i < 0 || i >= len(detected) {
			return Detected{}, fmt.Errorf("select agent: choice %d out of range", i)
		}
		return detected[i], nil
	}
	if d, ok := findDetected(detected, req.DefaultAgent); ok {
		return d, nil
	}
	return detected[0], nil
}

func pickModel(cfg *Config, req Request) (string, error) {
	if req.Model != "" {
		if !cfg.HasModel(req.Model) {
			return "", fmt.Errorf("%w %q for %s (available: %s)",
				ErrUnknownModel, req.Model, cfg.Name, strings.Join(cfg.Models, ", "))
		}
		return req.Model, nil
	}
	if req.DefaultModel != "" && cfg.HasModel(req.DefaultModel) {
		return req.DefaultModel, nil
	}
	if len(cfg.Models) == 0 {
		return "", fmt.Errorf("%w: %s has no models", ErrUnknownModel, cfg.Name)
	}
	if len(cfg.Models) > 1 && req.Chooser != nil {
		i, err := req.Chooser.Choose("Select model", cfg.Models)
		if err != nil {
			return "", fmt.Errorf("select model: %w", err)
		}
		if i < 0 || i >= len(cfg.Models) {
			return "", fmt.Errorf("select model: choice %d out of range", i)
		}
		return cfg.Models[i], nil
	}
	return cfg.Models[0], nil
}

func findDetected(detected []Detected, name string) (Detected, bool) {
	if name == "" {
		return Detected{}, false
	}
	for _, d := range detected {
		if d.Config.Name == name {
			return d, true
		}
	}
	return Detected{}, false
}

func detectedNames(detected []Detected) string {
	names := make([]string, len(detected))
	for i, d := range detected {
		names[i] = d.Config.Name
	}
	return strings.Join(names, ", ")
}
