package events

import (
	"errors"
	"testing"

	"github.com/vinayprograms/codeaudit/internal/session"
)

type captureSink struct {
	events   []session.Event
	closed   int
	closeErr error
}

func (c *captureSink) Emit(e session.Event) { c.events = append(c.events, e) }
func (c *captureSink) Close() error {
	c.closed++
	return c.closeErr
}

func TestMulti(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{closeErr: errors.New("boom")}
	c := &captureSink{closeErr: errors.New("later")}
	m := Multi{a, b, c}

	m.Emit(session.Event{Type: session.EventRunStart})
	if len(a.events) != 1 || len(b.events) != 1 || len(c.events) != 1 {
		t.Error("every sink should receive the event")
	}
	if err := m.Close(); err == nil || err.Error() != "boom" {
		t.Errorf("expected first close error, got %v", err)
	}
	if a.closed != 1 || c.closed != 1 {
		t.Error("all sinks should be closed even after an error")
	}
}

func TestRecorder_PersistsAndForwards(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New("health", "claude", "sonnet", "/src", []string{"A"})
	next := &captureSink{}
	r := NewRecorder(sess, store, WithForward(next))

	r.Emit(session.Event{Type: session.EventRunStart})
	r.Emit(session.Event{Type: session.EventRunEnd})
	r.Finish(session.StatusComplete, "")

	loaded, err := store.Load(sess.ID)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if len(loaded.Events) != 2 || loaded.Status != session.StatusComplete {
		t.Errorf("unexpected persisted session: %+v", loaded)
	}
	if len(next.events) != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", len(next.events))
	}
	if next.events[1].SeqID != 2 || next.events[1].RunID != sess.ID {
		t.Errorf("forwarded event not stamped: %+v", next.events[1])
	}
	if err := r.Close(); err != nil || next.closed != 1 {
		t.Error("Close should close the forwarded sink")
	}
}

func TestRecorder_NoStore(t *testing.T) {
	sess := session.New("health", "", "", "", nil)
	r := NewRecorder(sess, nil)
	r.Emit(session.Event{Type: session.EventRunStart})
	if len(r.Session().Events) != 1 {
		t.Error("event should be recorded in memory")
	}
	if err := r.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		audit, typ, want string
	}{
		{"health", "step_end", "codeaudit.health.step_end"},
		{"", "run_start", "codeaudit.unknown.run_start"},
		{"my.audit *x", "run_end", "codeaudit.my_audit__x.run_end"},
	}
	for _, tt := range tests {
		got := Subject("codeaudit", session.Event{Audit: tt.audit, Type: tt.typ})
		if got != tt.want {
			t.Errorf("Subject(%q, %q) = %q, expected %q", tt.audit, tt.typ, got, tt.want)
		}
	}
}

func TestPublisherOptions(t *testing.T) {
	p := newPublisher(nil, WithSubject("audits"))
	if p.subject != "audits" {
		t.Errorf("expected subject audits, got %s", p.subject)
	}
	p = newPublisher(nil, WithSubject(""))
	if p.subject != DefaultSubject {
		t.Errorf("empty subject should keep default, got %s", p.subject)
	}
	if err := p.Close(); err != nil {
		t.Errorf("closing without a connection should be a no-op: %v", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	if _, err := Connect("nats://127.0.0.1:1"); err == nil {
		t.Error("expected connection error")
	}
}
