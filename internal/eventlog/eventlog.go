// Package eventlog implements the append-only structured event stream
// that correlates every step of an agent tree by run id. One JSON
// object per line, opened lazily on first write, flushed exactly once
// at the top-level via a guaranteed-release block.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rlmdriver/internal/rlmlog"
	"rlmdriver/internal/usage"
)

// EventType enumerates the record kinds the driver emits.
type EventType string

const (
	EventRunStart        EventType = "run_start"
	EventCodeGenerated   EventType = "code_generated"
	EventExecutionResult EventType = "execution_result"
	EventFinalResult     EventType = "final_result"
	EventError           EventType = "error"
)

// Event is one JSONL record. Payload fields are optional and their
// presence depends on EventType.
type Event struct {
	Time        int64        `json:"time"`
	RunID       string       `json:"run_id"`
	ParentRunID string       `json:"parent_run_id,omitempty"`
	Depth       int          `json:"depth"`
	EventType   EventType    `json:"event_type"`
	Step        *int         `json:"step,omitempty"`
	Code        string       `json:"code,omitempty"`
	Output      string       `json:"output,omitempty"`
	HasError    bool         `json:"hasError,omitempty"`
	Reasoning   string       `json:"reasoning,omitempty"`
	Usage       *usage.Usage `json:"usage,omitempty"`
	Query       any          `json:"query,omitempty"`
	Result      any          `json:"result,omitempty"`
}

var log = rlmlog.Named("eventlog")

// Sink is the process-wide append-only sink, shared by reference
// across an entire agent tree. Open-on-first-write: the file is
// created lazily the first time Append is called.
type Sink struct {
	mu     sync.Mutex
	prefix string
	now    func() time.Time
	file   *os.File
	path   string
}

// NewSink constructs a Sink. prefix (may be empty) is prepended to the
// derived filename alongside a timestamp; the file itself is not
// created until the first Append call.
func NewSink(prefix string) *Sink {
	return &Sink{prefix: prefix, now: time.Now}
}

// GetLogFile returns the sink's file path once it has been opened, or
// "" if nothing has been appended yet. The path is stable for the
// lifetime of the Sink once assigned.
func (s *Sink) GetLogFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Append serializes evt as a single line and writes it in one call, so
// a record is either fully written or not at all — never partial.
func (s *Sink) Append(evt Event) error {
	if evt.Time == 0 {
		evt.Time = s.now().UnixMilli()
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("eventlog: marshal event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		if err := s.openLocked(); err != nil {
			return err
		}
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("eventlog: write event: %w", err)
	}
	return nil
}

func (s *Sink) openLocked() error {
	name := fmt.Sprintf("%d.jsonl", s.now().UnixNano())
	if s.prefix != "" {
		name = s.prefix + "-" + name
	}
	path := filepath.Join("logs", "rlm", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("eventlog: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("eventlog: open log file: %w", err)
	}
	s.file = f
	s.path = path
	return nil
}

// Flush closes the underlying file. Safe to call even if nothing was
// ever appended (no file was created). Always called from a
// guaranteed-release block at the top-level invocation.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		log.WithError(err).Warn("failed to close event log file")
	}
	return err
}
