// Package session records audit runs as JSONL logs.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/codeaudit/internal/usage"
)

// Status constants for sessions.
const (
	StatusRunning     = "running"
	StatusComplete    = "complete"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// Event types for the run log.
const (
	EventRunStart  = "run_start"
	EventStepStart = "step_start"
	EventStepEnd   = "step_end"
	EventRunEnd    = "run_end"
)

// Session is one audit run.
type Session struct {
	ID        string    `json:"id"`
	Audit     string    `json:"audit"`
	Agent     string    `json:"agent"`
	Model     string    `json:"model"`
	WorkDir   string    `json:"work_dir"`
	Steps     []string  `json:"steps"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Events    []Event   `json:"events"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	seq uint64
	mu  sync.Mutex
}

// Event is a single entry in the run log.
type Event struct {
	SeqID     uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	Audit     string    `json:"audit,omitempty"`

	// Step context
	StepIndex *int   `json:"step_index,omitempty"`
	StepTitle string `json:"step_title,omitempty"`

	// Run context (run_start)
	Agent      string `json:"agent,omitempty"`
	Model      string `json:"model,omitempty"`
	TotalSteps int    `json:"total_steps,omitempty"`

	// Outcome
	Success    *bool             `json:"success,omitempty"`
	Status     string            `json:"status,omitempty"`
	Score      *int              `json:"score,omitempty"`
	ExitCode   *int              `json:"exit_code,omitempty"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	Tokens     *usage.TokenUsage `json:"tokens,omitempty"`

	// Totals (run_end)
	Passed int     `json:"passed,omitempty"`
	Failed int     `json:"failed,omitempty"`
	Cost   float64 `json:"cost,omitempty"`
}

// New creates a running session with a fresh ID.
func New(audit, agent, model, workDir string, steps []string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Audit:     audit,
		Agent:     agent,
		Model:     model,
		WorkDir:   workDir,
		Steps:     steps,
		Status:    StatusRunning,
		Events:    []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddEvent appends event with the next sequence number and returns the
// stored copy.
func (s *Session) AddEvent(event Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	event.SeqID = s.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = s.ID
	event.Audit = s.Audit
	s.Events = append(s.Events, event)
	s.UpdatedAt = event.Timestamp
	return event
}

// snapshot copies the session for persistence.
func (s *Session) snapshot() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Session{
		ID:        s.ID,
		Audit:     s.Audit,
		Agent:     s.Agent,
		Model:     s.Model,
		WorkDir:   s.WorkDir,
		Steps:     append([]string(nil), s.Steps...),
		Status:    s.Status,
		Error:     s.Error,
		Events:    append([]Event(nil), s.Events...),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Finish sets the final status.
func (s *Session) Finish(status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.Error = errMsg
	s.UpdatedAt = time.Now()
}

// JSONL record types.
const (
	RecordTypeHeader = "header" // run metadata (first line)
	RecordTypeEvent  = "event"
	RecordTypeFooter = "footer" // final state (last line)
)

// JSONLRecord is one line of a session file. Exactly one of Run, Event or
// Final is set, matching RecordType.
type JSONLRecord struct {
	RecordType string `json:"_type"`

	// header
	Run *RunInfo `json:"run,omitempty"`

	// event
	*Event `json:",omitempty"`

	// footer
	Final *Final `json:"final,omitempty"`
}

// RunInfo is the header record.
type RunInfo struct {
	ID        string    `json:"id"`
	Audit     string    `json:"audit"`
	Agent     string    `json:"agent"`
	Model     string    `json:"model"`
	WorkDir   string    `json:"work_dir"`
	Steps     []string  `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}

// Final is the footer record.
type Final struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore keeps sessions as <id>.jsonl files in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file path for a session ID.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

// Save rewrites the session file. The write goes to a temp file that is then
// renamed, so readers never observe a half-written log.
func (s *FileStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := sess.snapshot()
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	var buf bytes.Buffer
	header := JSONLRecord{
		RecordType: RecordTypeHeader,
		Run: &RunInfo{
			ID:        snap.ID,
			Audit:     snap.Audit,
			Agent:     snap.Agent,
			Model:     snap.Model,
			WorkDir:   snap.WorkDir,
			Steps:     snap.Steps,
			CreatedAt: snap.CreatedAt,
		},
	}
	if err := writeLine(&buf, header); err != nil {
		return err
	}
	for i := range snap.Events {
		if err := writeLine(&buf, JSONLRecord{RecordType: RecordTypeEvent, Event: &snap.Events[i]}); err != nil {
			return err
		}
	}
	footer := JSONLRecord{
		RecordType: RecordTypeFooter,
		Final:      &Final{Status: snap.Status, Error: snap.Error, UpdatedAt: snap.UpdatedAt},
	}
	if err := writeLine(&buf, footer); err != nil {
		return err
	}

	path := s.Path(snap.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, path)
}

func writeLine(w io.Writer, record JSONLRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Load reads a session by ID.
func (s *FileStore) Load(id string) (*Session, error) {
	return LoadFile(s.Path(id))
}

// List returns session file paths, newest first.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	type item struct {
		path string
		mod  time.Time
	}
	var items []item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{filepath.Join(s.dir, e.Name()), info.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mod.After(items[j].mod) })
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.path
	}
	return paths, nil
}

// LoadFile reads a session from a JSONL file.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sess := &Session{Events: []Event{}}

	// bufio.Reader rather than Scanner: no line length limit
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading JSONL: %w", err)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if perr := parseLine(trimmed, sess); perr != nil {
				return nil, perr
			}
		}
		if err == io.EOF {
			break
		}
	}

	if n := len(sess.Events); n > 0 {
		sess.seq = sess.Events[n-1].SeqID
	}
	return sess, nil
}

func parseLine(line []byte, sess *Session) error {
	var record JSONLRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return fmt.Errorf("failed to parse JSONL line: %w", err)
	}

	switch record.RecordType {
	case RecordTypeHeader:
		if r := record.Run; r != nil {
			sess.ID = r.ID
			sess.Audit = r.Audit
			sess.Agent = r.Agent
			sess.Model = r.Model
			sess.WorkDir = r.WorkDir
			sess.Steps = r.Steps
			sess.CreatedAt = r.CreatedAt
		}
	case RecordTypeEvent:
		if record.Event != nil {
			sess.Events = append(sess.Events, *record.Event)
		}
	case RecordTypeFooter:
		if f := record.Final; f != nil {
			sess.Status = f.Status
			sess.Error = f.Error
			sess.UpdatedAt = f.UpdatedAt
		}
	}
	return nil
}
