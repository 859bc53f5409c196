// Package sandbox owns a per-agent Python evaluator: it captures
// printed output, exposes host callables into the evaluator's
// globals, and reads back a designated final-result global after each
// run.
//
// It is backed by github.com/go-python/gpython, a pure-Go, no-cgo
// Python implementation capable of bidirectional host/interpreter
// calls. The globals-as-map, host-closures-bound-by-name shape
// follows the common pattern for driving an embeddable interpreter
// from Go: build a string-keyed dict of name->value, install host
// closures into it, execute against it.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-python/gpython/py"

	// Registers the builtin module (print, len, range, ...) with the
	// gpython runtime; imported for side effects only.
	_ "github.com/go-python/gpython/builtin"

	"rlmdriver/internal/rlmlog"
)

// FinalResultGlobal is the name of the sandbox global the driver polls
// for a terminating value.
const FinalResultGlobal = "__final_result__"

var log = rlmlog.Named("sandbox")

// gpythonMu serializes calls into the gpython runtime process-wide.
// The agent tree is scheduled as a single-threaded cooperative DFS, so
// in practice only one agent ever holds this lock at a time; it exists
// to make that invariant load-bearing rather than assumed, in case a
// future caller runs independent sub-agents in true parallel.
var gpythonMu sync.Mutex

// State is one agent's exclusive sandbox: created when an agent
// starts, destroyed when it exits on every path.
type State struct {
	ctx     *py.Context
	globals py.StringDict
	stdout  strings.Builder
}

// New constructs a fresh sandbox with an empty globals namespace and
// the builtin print() rebound to write into the adapter's captured
// stdout buffer instead of the process's real stdout.
func New() *State {
	s := &State{
		ctx:     py.NewContext(py.DefaultContextOpts()),
		globals: py.NewStringDict(),
	}
	s.globals["print"] = py.MustNewMethod("print", s.pyPrint, 0, "capture-redirected print")
	s.installFinalSetters()
	return s
}

// installFinalSetters binds FINAL and FINAL_VAR: both assign their
// single argument to __final_result__. They are part of every
// sandbox's baseline bindings, alongside print above.
func (s *State) installFinalSetters() {
	setFinal := func(v py.Object) py.Object {
		s.globals[FinalResultGlobal] = v
		return py.None
	}
	s.globals["FINAL"] = py.MustNewMethod("FINAL", setFinal, 0, "FINAL(x) ends the agent with result x")
	s.globals["FINAL_VAR"] = py.MustNewMethod("FINAL_VAR", setFinal, 0, "FINAL_VAR(x) ends the agent with result x")
}

func (s *State) pyPrint(args ...py.Object) py.Object {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	s.stdout.WriteString(strings.Join(parts, " "))
	s.stdout.WriteString("\n")
	return py.None
}

// Bind installs a host value into the sandbox's globals under name.
// Go functions are wrapped so Python code can call them directly and
// receive their return value as a native Python value; every other
// value is marshalled once via toPython.
func (s *State) Bind(name string, value any) error {
	if fn, ok := isCallable(value); ok {
		s.globals[name] = py.MustNewMethod(name, fn, 0, "")
		return nil
	}
	obj, err := toPython(value)
	if err != nil {
		return fmt.Errorf("sandbox: bind %q: %w", name, err)
	}
	s.globals[name] = obj
	return nil
}

func isCallable(value any) (any, bool) {
	switch value.(type) {
	case func(string) (string, error):
		return value, true
	case func(...py.Object) py.Object:
		return value, true
	case func(py.Object) py.Object:
		return value, true
	default:
		return nil, false
	}
}

// Run executes code against the sandbox's persistent globals. An
// exception raised inside the code is caught here and appended to the
// stdout buffer as "\nError: <msg>" instead of being propagated; Run
// always returns after execution.
func (s *State) Run(_ context.Context, code string) {
	gpythonMu.Lock()
	defer gpythonMu.Unlock()

	result, err := py.RunFile(s.ctx, "<repl>", code, s.globals)
	if err != nil {
		s.stdout.WriteString("\nError: " + err.Error())
		log.WithError(err).Debug("sandbox execution raised")
		return
	}
	for k, v := range result {
		s.globals[k] = v
	}
}

// TakeStdout returns and clears the accumulated stdout.
func (s *State) TakeStdout() string {
	out := s.stdout.String()
	s.stdout.Reset()
	return out
}

// ReadFinal reads __final_result__. ok is false when the global was
// never assigned; a real Python None still counts as unset.
func (s *State) ReadFinal() (value any, ok bool) {
	obj, present := s.globals[FinalResultGlobal]
	if !present {
		return nil, false
	}
	if _, isNone := obj.(py.NoneType); isNone {
		return nil, false
	}
	return fromPython(obj)
}

// Close releases the sandbox. Safe to call multiple times.
func (s *State) Close() {
	if s.ctx != nil {
		s.ctx.Close()
		s.ctx = nil
	}
}
