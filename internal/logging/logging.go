// Package logging adapts the agentkit logger to audit runs: components
// derived from one root share its output and level, and run/step events
// have dedicated helpers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	aklog "github.com/vinayprograms/agentkit/logging"
)

// Level represents log severity.
type Level = aklog.Level

const (
	LevelDebug = aklog.LevelDebug
	LevelInfo  = aklog.LevelInfo
	LevelWarn  = aklog.LevelWarn
	LevelError = aklog.LevelError
)

var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a config/flag value ("debug", "info", ...) to a Level.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelPriority[level]; !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// sink is shared by a logger and every logger derived from it, so
// redirecting output affects all components at once.
type sink struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.Write(p)
}

func (s *sink) enabled(level Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return levelPriority[level] >= levelPriority[s.minLevel]
}

// Logger writes one line per entry: LEVEL TIMESTAMP [component] message key=value ...
type Logger struct {
	base *aklog.Logger
	sink *sink
}

// New creates a Logger writing to stderr at INFO.
func New() *Logger {
	return newLogger(&sink{output: os.Stderr, minLevel: LevelInfo}, "")
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return newLogger(&sink{output: io.Discard, minLevel: LevelError}, "")
}

// Filtering happens on the shared sink; the agentkit logger itself passes
// everything through.
func newLogger(s *sink, component string) *Logger {
	base := aklog.New()
	if component != "" {
		base = base.WithComponent(component)
	}
	base.SetOutput(s)
	base.SetLevel(LevelDebug)
	return &Logger{base: base, sink: s}
}

// WithComponent returns a logger tagged with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return newLogger(l.sink, component)
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.minLevel = level
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	if l.sink.enabled(LevelDebug) {
		l.base.Debug(msg, first(fields))
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	if l.sink.enabled(LevelInfo) {
		l.base.Info(msg, first(fields))
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	if l.sink.enabled(LevelWarn) {
		l.base.Warn(msg, first(fields))
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	if l.sink.enabled(LevelError) {
		l.base.Error(msg, first(fields))
	}
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}

// RunStart logs the start of an audit run.
func (l *Logger) RunStart(auditType, agent, model string, steps int) {
	l.Info("run_start", map[string]interface{}{
		"audit": auditType,
		"agent": agent,
		"model": model,
		"steps": steps,
	})
}

// RunComplete logs the end of an audit run.
func (l *Logger) RunComplete(auditType string, passed, failed int, duration time.Duration) {
	l.Info("run_complete", map[string]interface{}{
		"audit":    auditType,
		"passed":   passed,
		"failed":   failed,
		"duration": duration.String(),
	})
}

// StepStart logs the start of a step.
func (l *Logger) StepStart(index int, title string) {
	l.Info("step_start", map[string]interface{}{
		"step":  index,
		"title": title,
	})
}

// StepComplete logs the outcome of a step.
func (l *Logger) StepComplete(index int, status string, duration time.Duration, success bool) {
	fields := map[string]interface{}{
		"step":     index,
		"status":   status,
		"duration": duration.String(),
	}
	if success {
		l.Info("step_complete", fields)
	} else {
		l.Warn("step_failed", fields)
	}
}
