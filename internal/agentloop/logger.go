package agentloop

import (
	"rlmdriver/internal/eventlog"
	"rlmdriver/internal/usage"
)

// runLogger assigns step numbers for one agent's events and forwards
// them to the process-wide sink.
type runLogger struct {
	sink        *eventlog.Sink
	runID       string
	parentRunID string
	depth       int
	step        int
}

func newRunLogger(sink *eventlog.Sink, runID, parentRunID string, depth int) *runLogger {
	return &runLogger{sink: sink, runID: runID, parentRunID: parentRunID, depth: depth}
}

func (l *runLogger) nextStep() int {
	s := l.step
	l.step++
	return s
}

func (l *runLogger) logRunStart(query string) error {
	return l.sink.Append(eventlog.Event{
		RunID:       l.runID,
		ParentRunID: l.parentRunID,
		Depth:       l.depth,
		EventType:   eventlog.EventRunStart,
		Query:       query,
	})
}

func (l *runLogger) logCodeGenerated(step int, code string) error {
	s := step
	return l.sink.Append(eventlog.Event{
		RunID:       l.runID,
		ParentRunID: l.parentRunID,
		Depth:       l.depth,
		EventType:   eventlog.EventCodeGenerated,
		Step:        &s,
		Code:        code,
	})
}

func (l *runLogger) logExecutionResult(step int, code, output string, hasError bool, reasoning string, u usage.Usage) error {
	s := step
	uu := u
	return l.sink.Append(eventlog.Event{
		RunID:       l.runID,
		ParentRunID: l.parentRunID,
		Depth:       l.depth,
		EventType:   eventlog.EventExecutionResult,
		Step:        &s,
		Code:        code,
		Output:      output,
		HasError:    hasError,
		Reasoning:   reasoning,
		Usage:       &uu,
	})
}

func (l *runLogger) logFinalResult(result any) error {
	return l.sink.Append(eventlog.Event{
		RunID:       l.runID,
		ParentRunID: l.parentRunID,
		Depth:       l.depth,
		EventType:   eventlog.EventFinalResult,
		Result:      result,
	})
}

func (l *runLogger) logError(err error) error {
	return l.sink.Append(eventlog.Event{
		RunID:       l.runID,
		ParentRunID: l.parentRunID,
		Depth:       l.depth,
		EventType:   eventlog.EventError,
		Result:      err.Error(),
	})
}
