// Package events fans run events out to the session log and, optionally, NATS.
package events

import (
	"sync"

	"github.com/vinayprograms/codeaudit/internal/logging"
	"github.com/vinayprograms/codeaudit/internal/session"
)

// Sink receives run events in order.
type Sink interface {
	Emit(event session.Event)
	Close() error
}

// Multi forwards every event to each sink.
type Multi []Sink

// Emit sends event to all sinks.
func (m Multi) Emit(event session.Event) {
	for _, s := range m {
		s.Emit(event)
	}
}

// Close closes all sinks and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder appends events to a session and persists it after each one.
type Recorder struct {
	mu     sync.Mutex
	sess   *session.Session
	store  *session.FileStore
	logger *logging.Logger
	next   Sink
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger used for save failures.
func WithLogger(l *logging.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l.WithComponent("events") }
}

// WithForward passes each stamped event on to next.
func WithForward(next Sink) RecorderOption {
	return func(r *Recorder) { r.next = next }
}

// NewRecorder creates a recorder for sess backed by store.
func NewRecorder(sess *session.Session, store *session.FileStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{sess: sess, store: store, logger: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns the session being recorded.
func (r *Recorder) Session() *session.Session { return r.sess }

// Emit stamps the event with sequence and run context, saves the session and
// forwards the stamped copy.
func (r *Recorder) Emit(event session.Event) {
	r.mu.Lock()
	stored := r.sess.AddEvent(event)
	r.save()
	r.mu.Unlock()

	if r.next != nil {
		r.next.Emit(stored)
	}
}

// Finish records the final status and saves.
func (r *Recorder) Finish(status, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sess.Finish(status, errMsg)
	r.save()
}

func (r *Recorder) save() {
	if r.store == nil {
		return
	}
	if err := r.store.Save(r.sess); err != nil {
		r.logger.Warn("session_save_failed", map[string]interface{}{
			"session": r.sess.ID,
			"error":   err.Error(),
		})
	}
}

// Close closes the forwarded sink, if any.
func (r *Recorder) Close() error {
	if r.next != nil {
		return r.next.Close()
	}
	return nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(session.Event) {}
func (Discard) Close() error       { return nil }
